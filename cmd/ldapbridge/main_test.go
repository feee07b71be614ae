package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kineticdata/peripherals-ldap/internal/config"
	"github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/server"
)

// stubBridge answers every operation with canned data and records the
// last request.
type stubBridge struct {
	last        *ldap.Request
	err         error
	initialized bool
}

func (b *stubBridge) Name() string { return ldap.AdapterName }

func (b *stubBridge) Initialize(context.Context) error {
	b.initialized = true
	return b.err
}

func (b *stubBridge) Count(_ context.Context, req *ldap.Request) (int64, error) {
	b.last = req
	return 3, b.err
}

func (b *stubBridge) Retrieve(_ context.Context, req *ldap.Request) (*ldap.Record, error) {
	b.last = req
	if b.err != nil {
		return nil, b.err
	}
	record := ldap.NewRecord(2)
	cn := "jdoe"
	record.Set("cn", &cn)
	record.Set("mail", nil)
	return record, nil
}

func (b *stubBridge) Search(_ context.Context, req *ldap.Request) (*ldap.RecordList, error) {
	b.last = req
	sn := "Doe"
	record := ldap.NewRecord(1)
	record.Set("sn", &sn)
	return &ldap.RecordList{
		Fields:   []string{"sn"},
		Records:  []*ldap.Record{record},
		Metadata: ldap.Metadata{Size: 1},
	}, b.err
}

func (b *stubBridge) Structures(context.Context) ([]string, error) {
	return []string{"person", "user"}, b.err
}

func (b *stubBridge) StructureFields(_ context.Context, name string) ([]string, error) {
	return []string{"cn", name}, b.err
}

func testDeps(bridge *stubBridge) (deps, *bytes.Buffer) {
	var stdout bytes.Buffer
	return deps{
		stdout: &stdout,
		stderr: &bytes.Buffer{},
		newBridge: func(*config.Settings, ldap.Observer) (server.Bridge, error) {
			return bridge, nil
		},
		serve: func(context.Context, *server.Server, string) error {
			return nil
		},
	}, &stdout
}

func TestExecute_Version(t *testing.T) {
	d, stdout := testDeps(&stubBridge{})
	require.NoError(t, Execute(t.Context(), d, []string{"--version"}))
	assert.Equal(t, Version+"\n", stdout.String())
}

func TestExecute_Count(t *testing.T) {
	bridge := &stubBridge{}
	d, stdout := testDeps(bridge)

	err := Execute(t.Context(), d, []string{
		"count", "--structure", "user", "--query", `(sn=<%= parameter["sn"] %>)`, "--param", "sn=Doe",
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"count":3}`, stdout.String())
	require.NotNil(t, bridge.last)
	assert.Equal(t, "user", bridge.last.Structure)
	assert.Equal(t, map[string]string{"sn": "Doe"}, bridge.last.Parameters)
}

func TestExecute_RetrieveYAML(t *testing.T) {
	bridge := &stubBridge{}
	d, stdout := testDeps(bridge)

	err := Execute(t.Context(), d, []string{
		"retrieve", "-s", "user", "-q", "(cn=jdoe)", "-f", "cn", "-f", "mail", "-o", "yaml",
	})
	require.NoError(t, err)

	assert.Equal(t, "record:\n  cn: jdoe\n  mail: null\n", stdout.String())
	assert.Equal(t, []string{"cn", "mail"}, bridge.last.Fields)
}

func TestExecute_Search(t *testing.T) {
	d, stdout := testDeps(&stubBridge{})

	require.NoError(t, Execute(t.Context(), d, []string{"search", "--structure", "user", "--query", "(sn=*)"}))
	assert.JSONEq(t, `{"fields":["sn"],"records":[{"sn":"Doe"}],"metadata":{"size":1}}`, stdout.String())
}

func TestExecute_Structures(t *testing.T) {
	d, stdout := testDeps(&stubBridge{})
	require.NoError(t, Execute(t.Context(), d, []string{"structures"}))
	assert.JSONEq(t, `{"structures":["person","user"]}`, stdout.String())

	d, stdout = testDeps(&stubBridge{})
	require.NoError(t, Execute(t.Context(), d, []string{"structures", "user"}))
	assert.JSONEq(t, `{"name":"user","fields":["cn","user"]}`, stdout.String())
}

func TestExecute_Serve(t *testing.T) {
	bridge := &stubBridge{}
	d, _ := testDeps(bridge)

	var gotAddr string
	d.serve = func(_ context.Context, srv *server.Server, addr string) error {
		gotAddr = addr
		assert.NotNil(t, srv.Handler())
		return nil
	}

	require.NoError(t, Execute(t.Context(), d, []string{"serve", "--listen", "127.0.0.1:9999"}))
	assert.Equal(t, "127.0.0.1:9999", gotAddr)
	assert.True(t, bridge.initialized)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		bridge *stubBridge
	}{
		{name: "missing structure", args: []string{"count"}, bridge: &stubBridge{}},
		{name: "unknown flag", args: []string{"count", "--nope"}, bridge: &stubBridge{}},
		{name: "bad output", args: []string{"structures", "-o", "xml"}, bridge: &stubBridge{}},
		{name: "too many args", args: []string{"structures", "a", "b"}, bridge: &stubBridge{}},
		{
			name:   "bridge failure",
			args:   []string{"search", "-s", "user"},
			bridge: &stubBridge{err: errors.New("directory unavailable")},
		},
		{
			name:   "serve initialize failure",
			args:   []string{"serve"},
			bridge: &stubBridge{err: errors.New("bind rejected")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := testDeps(tt.bridge)
			assert.Error(t, Execute(t.Context(), d, tt.args))
		})
	}
}

func TestRunMain_Failure(t *testing.T) {
	exitCode := -1
	runMain([]string{"ldapbridge", "--invalid"}, func(code int) { exitCode = code })
	assert.Equal(t, 1, exitCode)
}
