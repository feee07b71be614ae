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
var _ datasource.DataSource = &RecordsDataSource{}
var _ datasource.DataSourceWithConfigure = &RecordsDataSource{}

func NewRecordsDataSource() datasource.DataSource {
	return &RecordsDataSource{}
}

// RecordsDataSource searches the entries matching a query.
type RecordsDataSource struct {
	bridgeDataSource
}

// RecordsDataSourceModel describes the data source data model.
type RecordsDataSourceModel struct {
	Structure  types.String `tfsdk:"structure"`
	Query      types.String `tfsdk:"query"`
	Parameters types.Map    `tfsdk:"parameters"`
	Fields     types.List   `tfsdk:"fields"`

	// Computed outputs
	ResultFields types.List  `tfsdk:"result_fields"`
	Records      types.List  `tfsdk:"records"`
	Size         types.Int64 `tfsdk:"size"`
	LimitReached types.Bool  `tfsdk:"limit_reached"`
}

func (d *RecordsDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_records"
}

func (d *RecordsDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Searches the directory entries matching a query. " +
			"Records are sorted by the requested fields in order; results stop at the provider's page limit.",
		Attributes: map[string]schema.Attribute{
			"structure":  structureAttribute(),
			"query":      queryAttribute(),
			"parameters": parametersAttribute(),
			"fields":     fieldsAttribute(),
			"result_fields": schema.ListAttribute{
				MarkdownDescription: "Fields each record was rendered with, in order.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"records": schema.ListAttribute{
				MarkdownDescription: "Matching entries in sorted order. Fields an entry does not carry are omitted.",
				ElementType: types.MapType{
					ElemType: types.StringType,
				},
				Computed: true,
			},
			"size": schema.Int64Attribute{
				MarkdownDescription: "Number of records returned.",
				Computed:            true,
			},
			"limit_reached": schema.BoolAttribute{
				MarkdownDescription: "Whether the search stopped at the page limit and more entries may exist.",
				Computed:            true,
			},
		},
	}
}

func (d *RecordsDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data RecordsDataSourceModel

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

	tflog.Debug(ctx, "Searching directory entries", map[string]any{
		"structure": request.Structure,
	})

	list, err := d.bridge.Search(ctx, request)
	if err != nil {
		addBridgeError(&resp.Diagnostics, "Error Searching Directory Entries", err)
		return
	}

	records := make([]attr.Value, 0, len(list.Records))
	for _, record := range list.Records {
		recordValue, _, diags := helpers.RecordValue(record)
		resp.Diagnostics.Append(diags...)
		records = append(records, recordValue)
	}

	recordsValue, diags := types.ListValue(types.MapType{ElemType: types.StringType}, records)
	resp.Diagnostics.Append(diags...)

	fieldsValue, diags := helpers.StringListValue(ctx, list.Fields)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Directory search completed", map[string]any{
		"size":          list.Metadata.Size,
		"limit_reached": list.Metadata.LimitReached,
	})

	data.ResultFields = fieldsValue
	data.Records = recordsValue
	data.Size = types.Int64Value(int64(list.Metadata.Size))
	data.LimitReached = types.BoolValue(list.Metadata.LimitReached)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
