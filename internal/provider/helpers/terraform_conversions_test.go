package helpers_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/provider/helpers"
)

func TestRecordValue(t *testing.T) {
	cn, sn := "jdoe", "Doe"
	record := ldapclient.NewRecord(3)
	record.Set("cn", &cn)
	record.Set("mail", nil)
	record.Set("sn", &sn)

	value, nullFields, diags := helpers.RecordValue(record)
	require.False(t, diags.HasError())

	assert.Equal(t, map[string]attr.Value{
		"cn": types.StringValue("jdoe"),
		"sn": types.StringValue("Doe"),
	}, value.Elements())
	assert.Equal(t, []string{"mail"}, nullFields)
}

func TestRecordValue_Empty(t *testing.T) {
	value, nullFields, diags := helpers.RecordValue(ldapclient.NewRecord(0))
	require.False(t, diags.HasError())

	assert.False(t, value.IsNull())
	assert.Empty(t, value.Elements())
	assert.NotNil(t, nullFields)
	assert.Empty(t, nullFields)
}

func TestStringListValue(t *testing.T) {
	value, diags := helpers.StringListValue(t.Context(), nil)
	require.False(t, diags.HasError())
	assert.False(t, value.IsNull(), "nil becomes an empty known list")
	assert.Empty(t, value.Elements())

	value, diags = helpers.StringListValue(t.Context(), []string{"b", "a"})
	require.False(t, diags.HasError())

	values, diags := helpers.StringList(t.Context(), value)
	require.False(t, diags.HasError())
	assert.Equal(t, []string{"b", "a"}, values, "order is kept")
}

func TestRequestFromValues(t *testing.T) {
	tests := []struct {
		name       string
		parameters types.Map
		fields     types.List
		want       *ldapclient.Request
	}{
		{
			name:       "null collections",
			parameters: types.MapNull(types.StringType),
			fields:     types.ListNull(types.StringType),
			want:       &ldapclient.Request{Structure: "user", Query: "(cn=*)"},
		},
		{
			name:       "unknown collections",
			parameters: types.MapUnknown(types.StringType),
			fields:     types.ListUnknown(types.StringType),
			want:       &ldapclient.Request{Structure: "user", Query: "(cn=*)"},
		},
		{
			name: "populated",
			parameters: types.MapValueMust(types.StringType, map[string]attr.Value{
				"sn": types.StringValue("Doe"),
			}),
			fields: types.ListValueMust(types.StringType, []attr.Value{
				types.StringValue("cn"),
				types.StringValue("mail"),
			}),
			want: &ldapclient.Request{
				Structure:  "user",
				Query:      "(cn=*)",
				Parameters: map[string]string{"sn": "Doe"},
				Fields:     []string{"cn", "mail"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diags := helpers.RequestFromValues(t.Context(),
				types.StringValue("user"), types.StringValue("(cn=*)"), tt.parameters, tt.fields)

			require.False(t, diags.HasError())
			assert.Equal(t, tt.want, got)
		})
	}
}
