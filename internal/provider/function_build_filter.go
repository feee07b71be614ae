package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/types"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/provider/helpers"
)

var _ function.Function = &BuildFilterFunction{}

// BuildFilterFunction implements the build_filter function.
type BuildFilterFunction struct{}

// Metadata returns the function name.
func (f BuildFilterFunction) Metadata(_ context.Context, req function.MetadataRequest, resp *function.MetadataResponse) {
	resp.Name = "build_filter"
}

// Definition returns the function schema including parameters and return types.
func (f BuildFilterFunction) Definition(_ context.Context, req function.DefinitionRequest, resp *function.DefinitionResponse) {
	resp.Definition = function.Definition{
		Summary: "Build the LDAP filter a bridge query runs with",
		Description: "Substitutes the parameters into the filter clause of the query and combines it with the " +
			"object class restriction, returning the filter the bridge sends to the directory.",
		MarkdownDescription: "Substitutes the parameters into the filter clause of `query` and combines it with the " +
			"`(objectClass=<structure>)` restriction, returning the filter the bridge sends to the directory.\n\n" +
			"- An empty clause matches every entry of the structure\n" +
			"- A placeholder naming an absent parameter is an error",
		Parameters: []function.Parameter{
			function.StringParameter{
				Name:                "structure",
				Description:         "Object class the filter is restricted to.",
				MarkdownDescription: "Object class the filter is restricted to.",
			},
			function.StringParameter{
				Name:                "query",
				Description:         "Bridge query: an LDAP filter optionally followed by a search base suffix.",
				MarkdownDescription: "Bridge query: an LDAP filter optionally followed by a search base suffix.",
			},
			function.MapParameter{
				Name:                "parameters",
				Description:         "Values for the parameter placeholders in the query.",
				MarkdownDescription: "Values for the `<%= parameter[\"name\"] %>` placeholders in `query`.",
				ElementType:         types.StringType,
				AllowNullValue:      true,
			},
		},
		Return: function.StringReturn{},
	}
}

// Run implements the function logic.
func (f BuildFilterFunction) Run(ctx context.Context, req function.RunRequest, resp *function.RunResponse) {
	var structure string
	var query string
	var parameters types.Map

	resp.Error = function.ConcatFuncErrors(resp.Error, req.Arguments.Get(ctx, &structure, &query, &parameters))
	if resp.Error != nil {
		return
	}

	params, diags := helpers.StringMap(ctx, parameters)
	if diags.HasError() {
		resp.Error = function.FuncErrorFromDiags(ctx, diags)
		return
	}

	filter, err := ldapclient.BuildFilter(query, params, structure)
	if err != nil {
		resp.Error = function.NewArgumentFuncError(2, err.Error())
		return
	}

	resp.Error = function.ConcatFuncErrors(resp.Error, resp.Result.Set(ctx, filter))
}

// NewBuildFilterFunction creates a new instance of the build_filter function.
func NewBuildFilterFunction() function.Function {
	return &BuildFilterFunction{}
}
