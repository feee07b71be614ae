// Package helpers provides conversions between Terraform framework values and
// the bridge request and record types, shared by data sources and functions.
package helpers

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
)

// StringList converts a list of strings. Null and unknown lists yield nil.
func StringList(ctx context.Context, value types.List) ([]string, diag.Diagnostics) {
	if value.IsNull() || value.IsUnknown() {
		return nil, nil
	}

	var result []string
	diags := value.ElementsAs(ctx, &result, false)
	return result, diags
}

// StringMap converts a map of strings. Null and unknown maps yield nil.
func StringMap(ctx context.Context, value types.Map) (map[string]string, diag.Diagnostics) {
	if value.IsNull() || value.IsUnknown() {
		return nil, nil
	}

	result := make(map[string]string, len(value.Elements()))
	diags := value.ElementsAs(ctx, &result, false)
	return result, diags
}

// StringListValue builds a list of strings. A nil slice becomes an empty
// list so computed attributes are always known.
func StringListValue(ctx context.Context, values []string) (types.List, diag.Diagnostics) {
	if values == nil {
		values = []string{}
	}
	return types.ListValueFrom(ctx, types.StringType, values)
}

// RecordValue converts a record into a map of its non-null fields and the
// names of the fields that were null, in record order.
//
// Terraform maps cannot tell an absent key from a null element once they
// reach configuration, so nulls are reported separately.
func RecordValue(record *ldapclient.Record) (types.Map, []string, diag.Diagnostics) {
	elements := make(map[string]attr.Value, record.Len())
	nullFields := []string{}

	for field, value := range record.All() {
		if value == nil {
			nullFields = append(nullFields, field)
			continue
		}
		elements[field] = types.StringValue(*value)
	}

	result, diags := types.MapValue(types.StringType, elements)
	return result, nullFields, diags
}

// RequestFromValues assembles a bridge request from data source attributes.
func RequestFromValues(ctx context.Context, structure, query types.String, parameters types.Map, fields types.List) (*ldapclient.Request, diag.Diagnostics) {
	var diags diag.Diagnostics

	params, d := StringMap(ctx, parameters)
	diags.Append(d...)

	fieldNames, d := StringList(ctx, fields)
	diags.Append(d...)

	return &ldapclient.Request{
		Structure:  structure.ValueString(),
		Query:      query.ValueString(),
		Parameters: params,
		Fields:     fieldNames,
	}, diags
}
