package ldap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"gopkg.in/yaml.v3"
)

// Timestamp layouts for generalized time normalisation.
const (
	generalizedTimeLayout = "20060102150405"
	renderedTimeLayout    = "2006-01-02T15:04:05-0700"
)

// Record is an ordered mapping from field name to value. A nil value means
// the attribute was absent on the entry.
type Record struct {
	fields []string
	values []*string
	index  map[string]int
}

// NewRecord creates an empty record with room for n fields.
func NewRecord(n int) *Record {
	return &Record{
		fields: make([]string, 0, n),
		values: make([]*string, 0, n),
		index:  make(map[string]int, n),
	}
}

// Set assigns a value to field. A field that is already present keeps its
// position.
func (r *Record) Set(field string, value *string) {
	if i, ok := r.index[field]; ok {
		r.values[i] = value
		return
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[field] = len(r.fields)
	r.fields = append(r.fields, field)
	r.values = append(r.values, value)
}

// Value returns the value of field and whether it is non-null.
func (r *Record) Value(field string) (string, bool) {
	i, ok := r.index[field]
	if !ok || r.values[i] == nil {
		return "", false
	}
	return *r.values[i], true
}

// Fields returns the field names in order.
func (r *Record) Fields() []string {
	return slices.Clone(r.fields)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// All iterates fields in order with their possibly nil values.
func (r *Record) All() iter.Seq2[string, *string] {
	return func(yield func(string, *string) bool) {
		for i, field := range r.fields {
			if !yield(field, r.values[i]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the record as an object in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if r.values[i] == nil {
			buf.WriteString("null")
			continue
		}

		value, err := json.Marshal(*r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the record as a mapping in field order.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for field, value := range r.All() {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: field}
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		if value != nil {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: *value}
		}
		node.Content = append(node.Content, key, val)
	}

	return node, nil
}

// syntaxResolver resolves the syntax OID of an attribute.
type syntaxResolver func(ctx context.Context, attribute string) (string, error)

// recordBuilder converts directory entries into records.
type recordBuilder struct {
	syntax         syntaxResolver
	multiValueJSON bool
}

// build produces a record holding fields in the given order. Attribute
// names match case-insensitively. Present attributes have their syntax
// resolved so generalized time values can be normalised.
func (b *recordBuilder) build(ctx context.Context, fields []string, entry *ldap.Entry) (*Record, error) {
	record := NewRecord(len(fields))

	for _, field := range fields {
		values := entry.GetEqualFoldAttributeValues(field)
		if len(values) == 0 {
			record.Set(field, nil)
			continue
		}

		syntax, err := b.syntax(ctx, field)
		if err != nil {
			return nil, err
		}

		var value string
		if syntax == GeneralizedTimeSyntax {
			value, err = FormatGeneralizedTime(values[0])
			if err != nil {
				return nil, NewLDAPError("build record", KindTimestampFormat,
					fmt.Sprintf("attribute %q of %s: %s", field, entry.DN, err.Error()), err)
			}
		} else {
			value = b.render(field, entry, values)
		}

		record.Set(field, &value)
	}

	return record, nil
}

// render returns the string form of a non-timestamp attribute.
func (b *recordBuilder) render(field string, entry *ldap.Entry, values []string) string {
	switch strings.ToLower(field) {
	case "objectsid":
		if sid, ok := decodeSID(entry.GetEqualFoldRawAttributeValue(field)); ok {
			return sid
		}
	case "objectguid":
		if guid, ok := decodeGUID(entry.GetEqualFoldRawAttributeValue(field)); ok {
			return guid
		}
	}

	if b.multiValueJSON && len(values) > 1 {
		if encoded, err := json.Marshal(values); err == nil {
			return string(encoded)
		}
	}

	return values[0]
}

// FormatGeneralizedTime re-renders the leading yyyyMMddHHmmss portion of a
// generalized time value, read as GMT, as yyyy-MM-ddTHH:mm:ss+0000.
func FormatGeneralizedTime(value string) (string, error) {
	if len(value) < len(generalizedTimeLayout) {
		return "", fmt.Errorf("unparseable generalized time %q", value)
	}

	t, err := time.ParseInLocation(generalizedTimeLayout, value[:len(generalizedTimeLayout)], time.UTC)
	if err != nil {
		return "", fmt.Errorf("unparseable generalized time %q: %w", value, err)
	}

	return t.Format(renderedTimeLayout), nil
}

// CompareRecords orders two records field by field. Null sorts before any
// value; the first field that differs decides.
func CompareRecords(a, b *Record, fields []string) int {
	for _, field := range fields {
		av, aok := a.Value(field)
		bv, bok := b.Value(field)

		switch {
		case !aok && !bok:
			continue
		case !aok:
			return -1
		case !bok:
			return 1
		}

		if c := strings.Compare(av, bv); c != 0 {
			return c
		}
	}
	return 0
}

// SortRecords stably sorts records by fields.
func SortRecords(records []*Record, fields []string) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		return CompareRecords(a, b, fields)
	})
}
