package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
)

var _ function.Function = &SplitQueryFunction{}

var splitQueryAttributeTypes = map[string]attr.Type{
	"filter":      types.StringType,
	"search_base": types.StringType,
}

// SplitQueryFunction implements the split_query function.
type SplitQueryFunction struct{}

// Metadata returns the function name.
func (f SplitQueryFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "split_query"
}

// Definition returns the function schema including parameters and return types.
func (f SplitQueryFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary:     "Split a bridge query into its filter clause and search base suffix",
		Description: "Separates the parenthesized filter clause of a bridge query from the search base text around it. Parameters are not substituted.",
		MarkdownDescription: "Separates the parenthesized filter clause of a bridge query from the search base text around it.\n\n" +
			"- `filter` is the clause, including adjacent groups such as `(a=1)(b=2)`\n" +
			"- `search_base` is the remainder, which the bridge prepends to the configured search base\n" +
			"- A query without parentheses is all search base\n" +
			"- Parameters are not substituted",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "query",
				Description:         "Bridge query to split.",
				MarkdownDescription: "Bridge query to split.",
			},
		},
		Return: function.ObjectReturn{
			AttributeTypes: splitQueryAttributeTypes,
		},
	}
}

// Run implements the function logic.
func (f SplitQueryFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var query string

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &query))
	if resp.Error != nil {
		return
	}

	filter, searchBase := ldapclient.SplitQuery(query)

	result, diags := types.ObjectValue(splitQueryAttributeTypes, map[string]attr.Value{
		"filter":      types.StringValue(filter),
		"search_base": types.StringValue(searchBase),
	})
	if diags.HasError() {
		resp.Error = function.FuncErrorFromDiags(ctx, diags)
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, result))
}

// NewSplitQueryFunction creates a new instance of the split_query function.
func NewSplitQueryFunction() function.Function {
	return &SplitQueryFunction{}
}
