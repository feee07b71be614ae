package ldap

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-ldap/ldap/v3"
)

var errDirectoryUnavailable = errors.New("directory unavailable")

// fakeDirectory serves canned pages, entries and schema definitions and
// records how it was called. One fakeDirectory is shared by every
// connection a fakeConnector hands out.
type fakeDirectory struct {
	mu sync.Mutex

	// pages are selected by the request cookie, so concurrent searches page
	// independently. A cookie is returned while pages remain or, with
	// endless set, always.
	pages   [][]*ldap.Entry
	endless bool
	// entries are streamed by Enumerate.
	entries []*ldap.Entry

	attributes map[string]*AttributeDefinition
	classes    map[string]*ClassDefinition

	searchErr    error
	searchErrAt  int // page index at which searchErr is returned
	enumerateErr error
	closeErr     error
	unavailable  bool // schema lookups fail

	searchCalls    int
	enumerated     int
	attributeCalls map[string]int
	classCalls     map[string]int
	closed         int
	requests       []PageRequest
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		attributes:     make(map[string]*AttributeDefinition),
		classes:        make(map[string]*ClassDefinition),
		attributeCalls: make(map[string]int),
		classCalls:     make(map[string]int),
		searchErrAt:    -1,
	}
}

func (f *fakeDirectory) withAttribute(name, syntax, superior string) *fakeDirectory {
	f.attributes[strings.ToLower(name)] = &AttributeDefinition{Names: []string{name}, Syntax: syntax, Superior: superior}
	return f
}

func (f *fakeDirectory) withClass(name string, superiors, must, may []string) *fakeDirectory {
	f.classes[strings.ToLower(name)] = &ClassDefinition{Names: []string{name}, Superiors: superiors, Must: must, May: may}
	return f
}

func (f *fakeDirectory) Search(_ context.Context, req *PageRequest) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	index := 0
	if len(req.Cookie) > 0 {
		if _, err := fmt.Sscanf(string(req.Cookie), "page-%d", &index); err != nil {
			return nil, fmt.Errorf("unexpected cookie %q", req.Cookie)
		}
	}
	f.searchCalls++
	f.requests = append(f.requests, *req)

	if f.searchErr != nil && index == f.searchErrAt {
		return nil, f.searchErr
	}

	page := &Page{}
	if index < len(f.pages) {
		page.Entries = f.pages[index]
	}
	if f.endless || index < len(f.pages)-1 {
		page.Cookie = fmt.Appendf(nil, "page-%d", index+1)
	}
	return page, nil
}

func (f *fakeDirectory) Enumerate(_ context.Context, _, _ string, _ []string, fn func(*ldap.Entry) error) error {
	f.mu.Lock()
	entries := slices.Clone(f.entries)
	enumerateErr := f.enumerateErr
	f.mu.Unlock()

	for _, entry := range entries {
		f.mu.Lock()
		f.enumerated++
		f.mu.Unlock()

		if err := fn(entry); err != nil {
			if errors.Is(err, ErrStopEnumeration) {
				return nil
			}
			return err
		}
	}
	return enumerateErr
}

func (f *fakeDirectory) AttributeDefinition(_ context.Context, name string) (*AttributeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attributeCalls[name]++
	if f.unavailable {
		return nil, errDirectoryUnavailable
	}
	def, ok := f.attributes[strings.ToLower(name)]
	if !ok {
		return nil, newSchemaError("attribute definition", "attribute %q is not defined", name)
	}
	return def, nil
}

func (f *fakeDirectory) ClassDefinition(_ context.Context, name string) (*ClassDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.classCalls[name]++
	if f.unavailable {
		return nil, errDirectoryUnavailable
	}
	def, ok := f.classes[strings.ToLower(name)]
	if !ok {
		return nil, newSchemaError("class definition", "object class %q is not defined", name)
	}
	return def, nil
}

func (f *fakeDirectory) ClassNames(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unavailable {
		return nil, errDirectoryUnavailable
	}
	var names []string
	for _, def := range f.classes {
		names = append(names, def.Names[0])
	}
	slices.Sort(names)
	return names, nil
}

func (f *fakeDirectory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed++
	return f.closeErr
}

func (f *fakeDirectory) setUnavailable(unavailable bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unavailable = unavailable
}

// fakeConnector hands out the same fakeDirectory on every Connect.
type fakeConnector struct {
	dir        *fakeDirectory
	connectErr error
	connects   atomic.Int64
}

func (c *fakeConnector) Connect(context.Context) (Directory, error) {
	c.connects.Add(1)
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.dir, nil
}

func newTestEntry(dn string, attributes map[string][]string) *ldap.Entry {
	entry := &ldap.Entry{DN: dn}
	names := make([]string, 0, len(attributes))
	for name := range attributes {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		values := attributes[name]
		raw := make([][]byte, len(values))
		for i, v := range values {
			raw[i] = []byte(v)
		}
		entry.Attributes = append(entry.Attributes, &ldap.EntryAttribute{Name: name, Values: values, ByteValues: raw})
	}
	return entry
}

func newTestConfig() *Config {
	config := DefaultConfig()
	config.Principal = "CN=bridge,OU=Service,DC=acme,DC=com"
	config.Credentials = "secret"
	config.SearchBase = testSearchBase
	return config
}

func newTestAdapter(dir *fakeDirectory, mutate ...func(*Config)) (*Adapter, *fakeConnector) {
	config := newTestConfig()
	for _, m := range mutate {
		m(config)
	}
	connector := &fakeConnector{dir: dir}
	adapter, err := NewAdapter(config, WithConnector(connector))
	if err != nil {
		panic(err)
	}
	return adapter, connector
}
