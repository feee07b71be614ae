package ldap

import (
	"context"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// AdapterName is the display name of the bridge adapter.
const AdapterName = "Ldap Bridge"

// Version is set at build time.
var Version = "dev"

// countAttributes asks the directory to return no attributes at all.
var countAttributes = []string{"1.1"}

// Adapter answers count, retrieve and search requests against a directory.
// An Adapter is safe for concurrent use; each operation uses its own
// connection and all operations share one schema cache.
type Adapter struct {
	config    *Config
	connector Connector
	schema    *SchemaCache
	observer  Observer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithConnector replaces the default go-ldap connector.
func WithConnector(connector Connector) Option {
	return func(a *Adapter) {
		a.connector = connector
	}
}

// WithObserver registers an observer for operation events.
func WithObserver(observer Observer) Option {
	return func(a *Adapter) {
		if observer != nil {
			a.observer = observer
		}
	}
}

// NewAdapter validates config and creates an adapter.
func NewAdapter(config *Config, opts ...Option) (*Adapter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config:   config,
		schema:   NewSchemaCache(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.connector == nil {
		a.connector = NewConnector(config)
	}
	a.schema.observer = a.observer

	return a, nil
}

// Name returns the adapter display name.
func (a *Adapter) Name() string {
	return AdapterName
}

// SchemaStats returns schema cache statistics.
func (a *Adapter) SchemaStats() CacheStats {
	return a.schema.Stats()
}

// Initialize opens and releases one connection to check that the
// configuration can reach and bind to the directory.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.run(ctx, "initialize", nil, func() error {
		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		if err := dir.Close(); err != nil {
			return NewLDAPError("initialize", KindConnection, "failed to release connection", err)
		}
		return nil
	})
}

// Count returns the number of entries matching the request.
func (a *Adapter) Count(ctx context.Context, req *Request) (int64, error) {
	var count int64

	err := a.run(ctx, "count", requestFields(req), func() (err error) {
		base, filter, err := a.prepare(req)
		if err != nil {
			return err
		}

		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer a.release(ctx, dir, &err)

		var n int64
		err = dir.Enumerate(ctx, base, filter, countAttributes, func(*ldap.Entry) error {
			n++
			return nil
		})
		if err != nil {
			return WrapError("count", err)
		}

		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Retrieve returns the single entry matching the request, nil when nothing
// matches, and ErrMultipleResults when more than one entry matches.
func (a *Adapter) Retrieve(ctx context.Context, req *Request) (*Record, error) {
	var record *Record

	err := a.run(ctx, "retrieve", requestFields(req), func() (err error) {
		base, filter, err := a.prepare(req)
		if err != nil {
			return err
		}

		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer a.release(ctx, dir, &err)

		fields, err := a.fields(ctx, dir, req)
		if err != nil {
			return err
		}

		var match *ldap.Entry
		matches := 0
		err = dir.Enumerate(ctx, base, filter, fields, func(entry *ldap.Entry) error {
			matches++
			if matches > 1 {
				return ErrStopEnumeration
			}
			match = entry
			return nil
		})
		if err != nil {
			return WrapError("retrieve", err)
		}

		if matches > 1 {
			return newMultipleResultsError("retrieve")
		}
		if match == nil {
			return nil
		}

		built, err := a.builder(dir).build(ctx, fields, match)
		if err != nil {
			return WrapError("retrieve", err)
		}

		record = built
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Search returns every record matching the request, up to the configured
// page limits, sorted by the requested fields.
func (a *Adapter) Search(ctx context.Context, req *Request) (*RecordList, error) {
	var list *RecordList

	err := a.run(ctx, "search", requestFields(req), func() (err error) {
		base, filter, err := a.prepare(req)
		if err != nil {
			return err
		}

		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer a.release(ctx, dir, &err)

		fields, err := a.fields(ctx, dir, req)
		if err != nil {
			return err
		}

		engine := &pagedSearch{
			dir:          dir,
			builder:      a.builder(dir),
			pageSize:     a.config.PageSize,
			maximumPages: a.config.MaximumPages,
		}

		result, err := engine.run(ctx, base, filter, fields)
		if err != nil {
			return WrapError("search", err)
		}
		a.observer.PagesFetched("search", result.pages, len(result.records))

		SortRecords(result.records, fields)

		if result.limitReached {
			tflog.SubsystemInfo(ctx, Subsystem, "Search stopped at the configured page limit", map[string]any{
				"pages":         result.pages,
				"page_size":     a.config.PageSize,
				"maximum_pages": a.config.MaximumPages,
			})
		}

		list = &RecordList{
			Fields:  fields,
			Records: result.records,
			Metadata: Metadata{
				Size:         len(result.records),
				LimitReached: result.limitReached,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return list, nil
}

// Structures lists the object classes defined by the directory schema.
func (a *Adapter) Structures(ctx context.Context) ([]string, error) {
	var names []string

	err := a.run(ctx, "structures", nil, func() (err error) {
		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer a.release(ctx, dir, &err)

		names, err = dir.ClassNames(ctx)
		if err != nil {
			return schemaLookupError("structures", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

// StructureFields returns the attributes an entry of structure may carry.
func (a *Adapter) StructureFields(ctx context.Context, structure string) ([]string, error) {
	var fields []string

	err := a.run(ctx, "structure_fields", map[string]any{"structure": structure}, func() (err error) {
		dir, err := a.connector.Connect(ctx)
		if err != nil {
			return err
		}
		defer a.release(ctx, dir, &err)

		fields, err = a.schema.Fields(ctx, dir, structure)
		return err
	})
	if err != nil {
		return nil, err
	}

	return fields, nil
}

// prepare builds the search base and filter for a request.
func (a *Adapter) prepare(req *Request) (base, filter string, err error) {
	if req == nil || req.Structure == "" {
		return "", "", NewLDAPError("prepare", KindDirectorySearch, "a structure is required", nil)
	}

	filter, err = BuildFilter(req.Query, req.Parameters, req.Structure)
	if err != nil {
		return "", "", err
	}

	base, err = BuildSearchBase(req.Query, req.Parameters, a.config.SearchBase)
	if err != nil {
		return "", "", err
	}

	return base, filter, nil
}

// fields returns the request's fields, or every field of its structure
// when none were requested.
func (a *Adapter) fields(ctx context.Context, dir Directory, req *Request) ([]string, error) {
	if len(req.Fields) > 0 {
		return req.Fields, nil
	}
	return a.schema.Fields(ctx, dir, req.Structure)
}

func (a *Adapter) builder(dir Directory) *recordBuilder {
	return &recordBuilder{
		syntax: func(ctx context.Context, attribute string) (string, error) {
			return a.schema.Syntax(ctx, dir, attribute)
		},
		multiValueJSON: a.config.MultiValueJSON,
	}
}

// release closes dir. A close failure replaces *err only when the
// operation itself succeeded.
func (a *Adapter) release(ctx context.Context, dir Directory, err *error) {
	closeErr := dir.Close()
	if closeErr == nil {
		return
	}

	LogConnectionEvent(ctx, "release_failed", map[string]any{"error": closeErr.Error()})
	if *err == nil {
		*err = NewLDAPError("release", KindConnection, "failed to release connection", closeErr)
	}
}

// run wraps an operation with logging and observation.
func (a *Adapter) run(ctx context.Context, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()
	err := WrapError(operation, LogOperation(ctx, operation, fields, fn))
	a.observer.OperationCompleted(operation, time.Since(start), err)
	return err
}
