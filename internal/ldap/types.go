package ldap

import (
	"context"
	"errors"

	"github.com/go-ldap/ldap/v3"
)

// Request is the generic request shape accepted by every bridge operation.
type Request struct {
	Structure  string            `json:"structure" yaml:"structure"`
	Query      string            `json:"query" yaml:"query"`
	Parameters map[string]string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Fields     []string          `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Metadata describes a search result.
type Metadata struct {
	Size         int  `json:"size" yaml:"size"`
	LimitReached bool `json:"limitReached,omitempty" yaml:"limitReached,omitempty"`
}

// RecordList is the result of a search: records in sorted order plus metadata.
type RecordList struct {
	Fields   []string  `json:"fields" yaml:"fields"`
	Records  []*Record `json:"records" yaml:"records"`
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
}

// PageRequest describes a single page fetch.
type PageRequest struct {
	BaseDN     string
	Filter     string
	Attributes []string
	PageSize   int
	Cookie     []byte // Continuation cursor from the previous page; nil on the first fetch
}

// Page is one batch of entries plus the cursor for the next fetch.
type Page struct {
	Entries []*ldap.Entry
	Cookie  []byte // Empty when the directory has no further pages
}

// AttributeDefinition is the subset of an attribute type description the
// bridge needs.
type AttributeDefinition struct {
	OID      string
	Names    []string
	Superior string
	Syntax   string // Syntax OID without any length suffix
}

// ClassDefinition is the subset of an object class description the
// bridge needs.
type ClassDefinition struct {
	OID       string
	Names     []string
	Superiors []string
	Must      []string
	May       []string
}

// ErrStopEnumeration may be returned from an Enumerate callback to end the
// enumeration early without error.
var ErrStopEnumeration = errors.New("stop enumeration")

// Directory is one open, bound connection context to a directory server.
type Directory interface {
	// Search performs one paged search request.
	Search(ctx context.Context, req *PageRequest) (*Page, error)

	// Enumerate streams every entry matching filter under base without
	// paging, calling fn for each.
	Enumerate(ctx context.Context, base, filter string, attributes []string, fn func(*ldap.Entry) error) error

	// AttributeDefinition returns the schema definition of an attribute type.
	AttributeDefinition(ctx context.Context, name string) (*AttributeDefinition, error)

	// ClassDefinition returns the schema definition of an object class.
	ClassDefinition(ctx context.Context, name string) (*ClassDefinition, error)

	// ClassNames lists the primary name of every object class in the schema.
	ClassNames(ctx context.Context) ([]string, error)

	// Close releases the connection.
	Close() error
}

// Connector opens directory connections.
type Connector interface {
	Connect(ctx context.Context) (Directory, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Directory, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Directory, error) {
	return f(ctx)
}
