package ldap

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Schema lookup kinds reported to observers.
const (
	LookupSyntax = "syntax"
	LookupFields = "fields"
)

// CacheStats provides statistics about schema cache usage.
type CacheStats struct {
	Hits     int64
	Misses   int64
	Syntaxes int
	Classes  int
}

// SchemaCache memoizes attribute syntaxes and structure field lists for the
// lifetime of an adapter. Entries are never invalidated and failed
// resolutions are never stored, so a later call retries against the
// directory. A miss is resolved over the caller's own connection and
// context; when concurrent first lookups of the same key race, the first
// result stored is kept.
type SchemaCache struct {
	mu       sync.RWMutex
	syntaxes map[string]string
	fields   map[string][]string

	hits   atomic.Int64
	misses atomic.Int64

	observer Observer
}

// NewSchemaCache creates an empty schema cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{
		syntaxes: make(map[string]string),
		fields:   make(map[string][]string),
		observer: nopObserver{},
	}
}

// Syntax returns the syntax OID of attribute, walking superior attribute
// types until one declares a syntax.
func (c *SchemaCache) Syntax(ctx context.Context, dir Directory, attribute string) (string, error) {
	c.mu.RLock()
	syntax, ok := c.syntaxes[attribute]
	c.mu.RUnlock()
	if ok {
		c.record(LookupSyntax, true)
		return syntax, nil
	}
	c.record(LookupSyntax, false)

	syntax, err := resolveSyntax(ctx, dir, attribute)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.syntaxes[attribute]; ok {
		return stored, nil
	}
	c.syntaxes[attribute] = syntax

	return syntax, nil
}

// Fields returns the sorted, deduplicated union of required and optional
// attributes of structure and all of its superior classes below top.
// Callers receive their own copy of the list.
func (c *SchemaCache) Fields(ctx context.Context, dir Directory, structure string) ([]string, error) {
	c.mu.RLock()
	fields, ok := c.fields[structure]
	c.mu.RUnlock()
	if ok {
		c.record(LookupFields, true)
		return slices.Clone(fields), nil
	}
	c.record(LookupFields, false)

	fields, err := resolveFields(ctx, dir, structure)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if stored, ok := c.fields[structure]; ok {
		return slices.Clone(stored), nil
	}
	c.fields[structure] = fields

	return slices.Clone(fields), nil
}

// Stats returns a snapshot of cache statistics.
func (c *SchemaCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return CacheStats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Syntaxes: len(c.syntaxes),
		Classes:  len(c.fields),
	}
}

func (c *SchemaCache) record(kind string, hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	c.observer.SchemaLookup(kind, hit)
}

func resolveSyntax(ctx context.Context, dir Directory, attribute string) (string, error) {
	seen := make(map[string]bool)

	for name := attribute; ; {
		key := strings.ToLower(name)
		if seen[key] {
			return "", newSchemaError("resolve syntax", "superior chain of attribute %q loops at %q", attribute, name)
		}
		seen[key] = true

		def, err := dir.AttributeDefinition(ctx, name)
		if err != nil {
			return "", schemaLookupError("resolve syntax", err)
		}

		if def.Syntax != "" {
			return def.Syntax, nil
		}

		if def.Superior == "" {
			return "", newSchemaError("resolve syntax", "no syntax found for attribute %q", attribute)
		}
		name = def.Superior
	}
}

func resolveFields(ctx context.Context, dir Directory, structure string) ([]string, error) {
	var fields []string
	seen := make(map[string]bool)
	pending := []string{structure}

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]

		key := strings.ToLower(name)
		if key == RootClass || seen[key] {
			continue
		}
		seen[key] = true

		def, err := dir.ClassDefinition(ctx, name)
		if err != nil {
			return nil, schemaLookupError("resolve fields", err)
		}

		fields = append(fields, def.Must...)
		fields = append(fields, def.May...)
		pending = append(pending, def.Superiors...)
	}

	slices.Sort(fields)
	return slices.Compact(fields), nil
}

// schemaLookupError keeps schema errors as they are and wraps anything else.
func schemaLookupError(operation string, err error) error {
	if KindOf(err) == KindSchemaResolution {
		return err
	}
	return NewLDAPError(operation, KindSchemaResolution, describeCause(err), err)
}
