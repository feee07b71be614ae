package ldap

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCache_Syntax(t *testing.T) {
	dir := userDirectory()
	cache := NewSchemaCache()

	syntax, err := cache.Syntax(t.Context(), dir, "cn")
	require.NoError(t, err)
	assert.Equal(t, directoryStringSyntax, syntax)
	assert.Equal(t, 1, dir.attributeCalls["cn"])
	assert.Equal(t, 1, dir.attributeCalls["name"], "superior consulted once")

	// Served from the cache even though the directory is gone.
	dir.setUnavailable(true)
	syntax, err = cache.Syntax(t.Context(), dir, "cn")
	require.NoError(t, err)
	assert.Equal(t, directoryStringSyntax, syntax)
	assert.Equal(t, 1, dir.attributeCalls["cn"])

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Syntaxes)
}

func TestSchemaCache_SyntaxFailures(t *testing.T) {
	dir := userDirectory().
		withAttribute("orphan", "", "").
		withAttribute("loopA", "", "loopB").
		withAttribute("loopB", "", "loopA")
	cache := NewSchemaCache()

	tests := []struct {
		name      string
		attribute string
	}{
		{name: "undefined attribute", attribute: "bogus"},
		{name: "no syntax in chain", attribute: "orphan"},
		{name: "superior loop", attribute: "loopA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cache.Syntax(t.Context(), dir, tt.attribute)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaResolution)
		})
	}

	assert.Zero(t, cache.Stats().Syntaxes, "failures are not cached")
}

func TestSchemaCache_FailureIsRetried(t *testing.T) {
	dir := userDirectory()
	cache := NewSchemaCache()

	dir.setUnavailable(true)
	_, err := cache.Fields(t.Context(), dir, "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaResolution)
	assert.ErrorIs(t, err, errDirectoryUnavailable)

	dir.setUnavailable(false)
	fields, err := cache.Fields(t.Context(), dir, "user")
	require.NoError(t, err)
	assert.Equal(t, []string{"cn", "mail", "sn", "telephoneNumber", "whenCreated"}, fields)
	assert.Equal(t, 2, dir.classCalls["user"])
}

func TestSchemaCache_Fields(t *testing.T) {
	dir := userDirectory().
		withClass("auxA", []string{"top"}, []string{"cn"}, []string{"description"}).
		withClass("multi", []string{"person", "auxA"}, nil, []string{"sn"})
	cache := NewSchemaCache()

	fields, err := cache.Fields(t.Context(), dir, "multi")
	require.NoError(t, err)
	assert.Equal(t, []string{"cn", "description", "sn", "telephoneNumber"}, fields, "sorted and deduplicated")

	// Callers get their own copy.
	fields[0] = "mutated"
	again, err := cache.Fields(t.Context(), dir, "multi")
	require.NoError(t, err)
	assert.Equal(t, "cn", again[0])
	assert.Equal(t, 1, dir.classCalls["multi"])

	fields, err = cache.Fields(t.Context(), dir, "top")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestSchemaCache_Concurrent(t *testing.T) {
	dir := userDirectory()
	cache := NewSchemaCache()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := cache.Fields(t.Context(), dir, "user")
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := cache.Syntax(t.Context(), dir, "whenCreated")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	stats := cache.Stats()
	assert.Equal(t, int64(32), stats.Hits+stats.Misses)
	assert.Equal(t, 1, stats.Classes)
	assert.Equal(t, 1, stats.Syntaxes)
}

// blockingDirectory holds class lookups until released or until the
// caller's context ends.
type blockingDirectory struct {
	*fakeDirectory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingDirectory(dir *fakeDirectory) *blockingDirectory {
	return &blockingDirectory{
		fakeDirectory: dir,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (d *blockingDirectory) ClassDefinition(ctx context.Context, name string) (*ClassDefinition, error) {
	d.once.Do(func() { close(d.entered) })

	select {
	case <-d.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.fakeDirectory.ClassDefinition(ctx, name)
}

func TestSchemaCache_ConcurrentMissUsesCallerConnection(t *testing.T) {
	cache := NewSchemaCache()
	dirA := newBlockingDirectory(userDirectory())
	dirB := newBlockingDirectory(userDirectory())

	ctxA, cancelA := context.WithCancel(t.Context())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := cache.Fields(ctxA, dirA, "user")
		errA <- err
	}()
	<-dirA.entered

	type result struct {
		fields []string
		err    error
	}
	resultB := make(chan result, 1)
	go func() {
		fields, err := cache.Fields(t.Context(), dirB, "user")
		resultB <- result{fields, err}
	}()
	<-dirB.entered

	cancelA()
	err := <-errA
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cache.Stats().Classes, "a cancelled lookup stores nothing")

	close(dirB.release)
	got := <-resultB
	require.NoError(t, got.err, "a cancelled caller does not fail another caller")
	assert.Equal(t, []string{"cn", "mail", "sn", "telephoneNumber", "whenCreated"}, got.fields)

	dirB.mu.Lock()
	assert.Equal(t, 1, dirB.classCalls["user"], "resolved over the caller's own connection")
	dirB.mu.Unlock()

	dirA.mu.Lock()
	assert.Zero(t, dirA.classCalls["user"])
	dirA.mu.Unlock()

	fields, err := cache.Fields(t.Context(), dirA, "user")
	require.NoError(t, err)
	assert.Equal(t, got.fields, fields, "later callers are served from the cache")
}
