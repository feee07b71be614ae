package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	"github.com/kineticdata/peripherals-ldap/internal/provider/helpers"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &RecordDataSource{}
var _ datasource.DataSourceWithConfigure = &RecordDataSource{}

func NewRecordDataSource() datasource.DataSource {
	return &RecordDataSource{}
}

// RecordDataSource retrieves the single entry matching a query.
type RecordDataSource struct {
	bridgeDataSource
}

// RecordDataSourceModel describes the data source data model.
type RecordDataSourceModel struct {
	Structure  types.String `tfsdk:"structure"`
	Query      types.String `tfsdk:"query"`
	Parameters types.Map    `tfsdk:"parameters"`
	Fields     types.List   `tfsdk:"fields"`

	// Computed outputs
	Found      types.Bool `tfsdk:"found"`
	Record     types.Map  `tfsdk:"record"`
	NullFields types.List `tfsdk:"null_fields"`
}

func (d *RecordDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_record"
}

func (d *RecordDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves the single directory entry matching a query. " +
			"More than one match is an error; no match sets `found` to `false`.",
		Attributes: map[string]schema.Attribute{
			"structure":  structureAttribute(),
			"query":      queryAttribute(),
			"parameters": parametersAttribute(),
			"fields":     fieldsAttribute(),
			"found": schema.BoolAttribute{
				MarkdownDescription: "Whether an entry matched.",
				Computed:            true,
			},
			"record": schema.MapAttribute{
				MarkdownDescription: "Rendered field values of the entry. Fields the entry does not carry are omitted and listed in `null_fields`.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"null_fields": schema.ListAttribute{
				MarkdownDescription: "Requested fields the entry does not carry.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *RecordDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data RecordDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() || !d.checkConfigured(&resp.Diagnostics) {
		return
	}

	request, diags := helpers.RequestFromValues(ctx, data.Structure, data.Query, data.Parameters, data.Fields)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Retrieving directory entry", map[string]any{
		"structure": request.Structure,
	})

	record, err := d.bridge.Retrieve(ctx, request)
	if err != nil {
		addBridgeError(&resp.Diagnostics, "Error Retrieving Directory Entry", err)
		return
	}

	if record == nil {
		tflog.Debug(ctx, "No directory entry matched")
		data.Found = types.BoolValue(false)
		data.Record = types.MapValueMust(types.StringType, map[string]attr.Value{})
		data.NullFields, diags = helpers.StringListValue(ctx, nil)
		resp.Diagnostics.Append(diags...)
		resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
		return
	}

	recordValue, nullFields, diags := helpers.RecordValue(record)
	resp.Diagnostics.Append(diags...)

	nullFieldsValue, diags := helpers.StringListValue(ctx, nullFields)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	data.Found = types.BoolValue(true)
	data.Record = recordValue
	data.NullFields = nullFieldsValue

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
