package ldap

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubschemaDN = "CN=Aggregate,CN=Schema,CN=Configuration,DC=acme,DC=com"

// cannedConn answers searches from results keyed by base DN and streams
// response for asynchronous searches.
type cannedConn struct {
	results   map[string]*ldap.SearchResult
	searchErr error
	response  *cannedResponse

	requests []*ldap.SearchRequest
	asyncCtx context.Context
	closed   bool
}

func (c *cannedConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	c.requests = append(c.requests, req)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	result, ok := c.results[req.BaseDN]
	if !ok {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, errors.New("no such object"))
	}
	return result, nil
}

func (c *cannedConn) SearchAsync(ctx context.Context, req *ldap.SearchRequest, _ int) ldap.Response {
	c.requests = append(c.requests, req)
	c.asyncCtx = ctx
	return c.response
}

func (c *cannedConn) Close() error {
	c.closed = true
	return nil
}

// cannedResponse yields entries in order. A nil entry stands for a
// referral.
type cannedResponse struct {
	entries []*ldap.Entry
	err     error

	next    int
	current *ldap.Entry
}

func (r *cannedResponse) Next() bool {
	if r.next >= len(r.entries) {
		return false
	}
	r.current = r.entries[r.next]
	r.next++
	return true
}

func (r *cannedResponse) Entry() *ldap.Entry       { return r.current }
func (r *cannedResponse) Referral() string         { return "" }
func (r *cannedResponse) Controls() []ldap.Control { return nil }
func (r *cannedResponse) Err() error               { return r.err }

func TestDirectory_SearchPageCookie(t *testing.T) {
	tests := []struct {
		name       string
		controls   []ldap.Control
		wantCookie string
	}{
		{
			name:       "more pages",
			controls:   []ldap.Control{&ldap.ControlPaging{Cookie: []byte("next")}},
			wantCookie: "next",
		},
		{
			name:     "last page",
			controls: []ldap.Control{&ldap.ControlPaging{}},
		},
		{
			name: "no paging control",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []*ldap.Entry{userEntry("jdoe", "Doe")}
			conn := &cannedConn{results: map[string]*ldap.SearchResult{
				testSearchBase: {Entries: entries, Controls: tt.controls},
			}}
			dir := &directory{conn: conn, timeLimit: 30}

			page, err := dir.Search(t.Context(), &PageRequest{
				BaseDN:     testSearchBase,
				Filter:     "(objectClass=user)",
				Attributes: []string{"cn"},
				PageSize:   25,
				Cookie:     []byte("previous"),
			})
			require.NoError(t, err)
			assert.Equal(t, entries, page.Entries)
			assert.Equal(t, tt.wantCookie, string(page.Cookie))

			require.Len(t, conn.requests, 1)
			req := conn.requests[0]
			assert.Equal(t, ldap.ScopeWholeSubtree, req.Scope)
			assert.Equal(t, "(objectClass=user)", req.Filter)
			assert.Equal(t, []string{"cn"}, req.Attributes)
			assert.Zero(t, req.SizeLimit)
			assert.Equal(t, 30, req.TimeLimit)

			paging, ok := ldap.FindControl(req.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging)
			require.True(t, ok, "paging control is sent")
			assert.Equal(t, uint32(25), paging.PagingSize)
			assert.Equal(t, "previous", string(paging.Cookie))
		})
	}
}

func TestDirectory_SearchFailures(t *testing.T) {
	t.Run("directory error", func(t *testing.T) {
		conn := &cannedConn{searchErr: ldap.NewError(ldap.LDAPResultFilterError, errors.New("bad filter"))}
		dir := &directory{conn: conn}

		_, err := dir.Search(t.Context(), &PageRequest{BaseDN: testSearchBase, Filter: "(", PageSize: 10})
		require.Error(t, err)
		assert.True(t, ldap.IsErrorWithCode(err, ldap.LDAPResultFilterError))
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &cannedConn{}
		dir := &directory{conn: conn}

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := dir.Search(ctx, &PageRequest{BaseDN: testSearchBase, PageSize: 10})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, conn.requests, "nothing is sent")
	})
}

func TestDirectory_Enumerate(t *testing.T) {
	errCallback := errors.New("callback failed")
	errStream := ldap.NewError(ldap.LDAPResultTimeLimitExceeded, errors.New("time limit"))

	tests := []struct {
		name        string
		entries     []*ldap.Entry
		streamErr   error
		stopAfter   int
		callbackErr error
		wantSeen    []string
		wantErr     error
	}{
		{
			name:     "skips referrals",
			entries:  []*ldap.Entry{userEntry("a", "1"), nil, userEntry("b", "2")},
			wantSeen: []string{"a", "b"},
		},
		{
			name:      "stops early",
			entries:   []*ldap.Entry{userEntry("a", "1"), userEntry("b", "2"), userEntry("c", "3")},
			stopAfter: 2,
			wantSeen:  []string{"a", "b"},
		},
		{
			name:        "callback error",
			entries:     []*ldap.Entry{userEntry("a", "1"), userEntry("b", "2")},
			callbackErr: errCallback,
			wantSeen:    []string{"a"},
			wantErr:     errCallback,
		},
		{
			name:      "stream error",
			entries:   []*ldap.Entry{userEntry("a", "1")},
			streamErr: errStream,
			wantSeen:  []string{"a"},
			wantErr:   errStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &cannedConn{response: &cannedResponse{entries: tt.entries, err: tt.streamErr}}
			dir := &directory{conn: conn, timeLimit: 5}

			var seen []string
			err := dir.Enumerate(t.Context(), testSearchBase, "(objectClass=user)", countAttributes, func(entry *ldap.Entry) error {
				seen = append(seen, entry.GetAttributeValue("cn"))
				if tt.callbackErr != nil {
					return tt.callbackErr
				}
				if tt.stopAfter > 0 && len(seen) == tt.stopAfter {
					return ErrStopEnumeration
				}
				return nil
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantSeen, seen)

			require.Len(t, conn.requests, 1)
			assert.Equal(t, []string{"1.1"}, conn.requests[0].Attributes)
			assert.Empty(t, conn.requests[0].Controls)
			require.NotNil(t, conn.asyncCtx)
			assert.Error(t, conn.asyncCtx.Err(), "the asynchronous search is cancelled on return")
		})
	}
}

func subschemaConn() *cannedConn {
	return &cannedConn{results: map[string]*ldap.SearchResult{
		"": {Entries: []*ldap.Entry{
			newTestEntry("", map[string][]string{"subschemaSubentry": {testSubschemaDN}}),
		}},
		testSubschemaDN: {Entries: []*ldap.Entry{
			newTestEntry(testSubschemaDN, map[string][]string{
				"attributeTypes": {
					"( 2.5.4.41 NAME 'name' SYNTAX 1.3.6.1.4.1.1466.115.121.1.15{32768} )",
					"( 2.5.4.3 NAME ( 'cn' 'commonName' ) SUP name )",
					"not a definition",
				},
				"objectClasses": {
					"( 2.5.6.6 NAME 'person' SUP top STRUCTURAL MUST ( sn $ cn ) MAY telephoneNumber )",
					"( 2.5.6.0 NAME 'top' ABSTRACT MUST objectClass )",
				},
			}),
		}},
	}}
}

func TestDirectory_Subschema(t *testing.T) {
	conn := subschemaConn()
	dir := &directory{conn: conn}

	cn, err := dir.AttributeDefinition(t.Context(), "commonName")
	require.NoError(t, err)
	assert.Equal(t, "name", cn.Superior)
	assert.Empty(t, cn.Syntax)

	name, err := dir.AttributeDefinition(t.Context(), "NAME")
	require.NoError(t, err)
	assert.Equal(t, directoryStringSyntax, name.Syntax)

	person, err := dir.ClassDefinition(t.Context(), "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"top"}, person.Superiors)
	assert.Equal(t, []string{"sn", "cn"}, person.Must)
	assert.Equal(t, []string{"telephoneNumber"}, person.May)

	names, err := dir.ClassNames(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "top"}, names)

	_, err = dir.ClassDefinition(t.Context(), "printer")
	assert.ErrorIs(t, err, ErrSchemaResolution)

	require.Len(t, conn.requests, 2, "the subschema is read once per connection")
	rootDSE, subschema := conn.requests[0], conn.requests[1]
	assert.Empty(t, rootDSE.BaseDN)
	assert.Equal(t, ldap.ScopeBaseObject, rootDSE.Scope)
	assert.Equal(t, []string{"subschemaSubentry"}, rootDSE.Attributes)
	assert.Equal(t, testSubschemaDN, subschema.BaseDN)
	assert.Equal(t, ldap.ScopeBaseObject, subschema.Scope)
	assert.Equal(t, "(objectClass=subschema)", subschema.Filter)
	assert.Equal(t, []string{"attributeTypes", "objectClasses"}, subschema.Attributes)
}

func TestDirectory_SubschemaFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*cannedConn)
	}{
		{
			name: "root DSE unreadable",
			mutate: func(c *cannedConn) {
				c.searchErr = ldap.NewError(ldap.LDAPResultInsufficientAccessRights, errors.New("denied"))
			},
		},
		{
			name: "no subschema advertised",
			mutate: func(c *cannedConn) {
				c.results[""] = &ldap.SearchResult{Entries: []*ldap.Entry{newTestEntry("", nil)}}
			},
		},
		{
			name: "subschema entry missing",
			mutate: func(c *cannedConn) {
				delete(c.results, testSubschemaDN)
			},
		},
		{
			name: "subschema entry empty",
			mutate: func(c *cannedConn) {
				c.results[testSubschemaDN] = &ldap.SearchResult{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := subschemaConn()
			tt.mutate(conn)
			dir := &directory{conn: conn}

			_, err := dir.ClassDefinition(t.Context(), "person")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSchemaResolution)
			assert.Nil(t, dir.schema, "a failed read is not kept")
		})
	}
}

func TestDirectory_Close(t *testing.T) {
	conn := &cannedConn{}
	dir := &directory{conn: conn}

	require.NoError(t, dir.Close())
	assert.True(t, conn.closed)
}
