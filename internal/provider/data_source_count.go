package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/kineticdata/peripherals-ldap/internal/provider/helpers"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &CountDataSource{}
var _ datasource.DataSourceWithConfigure = &CountDataSource{}

func NewCountDataSource() datasource.DataSource {
	return &CountDataSource{}
}

// CountDataSource counts the entries matching a query.
type CountDataSource struct {
	bridgeDataSource
}

// CountDataSourceModel describes the data source data model.
type CountDataSourceModel struct {
	Structure  types.String `tfsdk:"structure"`
	Query      types.String `tfsdk:"query"`
	Parameters types.Map    `tfsdk:"parameters"`

	// Computed outputs
	Count types.Int64 `tfsdk:"count"`
}

func (d *CountDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_count"
}

func (d *CountDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Counts the directory entries of an object class that match a query.",
		Attributes: map[string]schema.Attribute{
			"structure":  structureAttribute(),
			"query":      queryAttribute(),
			"parameters": parametersAttribute(),
			"count": schema.Int64Attribute{
				MarkdownDescription: "Number of matching entries.",
				Computed:            true,
			},
		},
	}
}

func (d *CountDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data CountDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() || !d.checkConfigured(&resp.Diagnostics) {
		return
	}

	request, diags := helpers.RequestFromValues(ctx, data.Structure, data.Query, data.Parameters, types.ListNull(types.StringType))
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Counting directory entries", map[string]any{
		"structure": request.Structure,
	})

	count, err := d.bridge.Count(ctx, request)
	if err != nil {
		addBridgeError(&resp.Diagnostics, "Error Counting Directory Entries", err)
		return
	}

	data.Count = types.Int64Value(count)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

// Shared request attributes.

func structureAttribute() schema.StringAttribute {
	return schema.StringAttribute{
		MarkdownDescription: "Object class to search (e.g., `user`).",
		Required:            true,
		Validators: []validator.String{
			stringvalidator.LengthAtLeast(1),
		},
	}
}

func queryAttribute() schema.StringAttribute {
	return schema.StringAttribute{
		MarkdownDescription: "LDAP filter clause, optionally followed by a search base suffix " +
			"(e.g., `(sn=<%= parameter[\"last\"] %>)ou=People`). Placeholders are filled from `parameters`.",
		Optional: true,
	}
}

func parametersAttribute() schema.MapAttribute {
	return schema.MapAttribute{
		MarkdownDescription: "Values for the `<%= parameter[\"name\"] %>` placeholders in `query`. " +
			"Values are inserted verbatim. A placeholder without a matching entry is an error.",
		ElementType: types.StringType,
		Optional:    true,
	}
}

func fieldsAttribute() schema.ListAttribute {
	return schema.ListAttribute{
		MarkdownDescription: "Attributes to return. Defaults to every attribute of the object class.",
		ElementType:         types.StringType,
		Optional:            true,
	}
}
