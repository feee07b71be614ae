package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/types"

	"github.com/kineticdata/peripherals-ldap/internal/provider/helpers"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &StructuresDataSource{}
var _ datasource.DataSourceWithConfigure = &StructuresDataSource{}

func NewStructuresDataSource() datasource.DataSource {
	return &StructuresDataSource{}
}

// StructuresDataSource lists the object classes defined by the directory schema.
type StructuresDataSource struct {
	bridgeDataSource
}

// StructuresDataSourceModel describes the data source data model.
type StructuresDataSourceModel struct {
	Names types.List `tfsdk:"names"`
}

func (d *StructuresDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_structures"
}

func (d *StructuresDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Lists the object classes the directory schema defines.",
		Attributes: map[string]schema.Attribute{
			"names": schema.ListAttribute{
				MarkdownDescription: "Object class names defined by the directory schema, sorted.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *StructuresDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data StructuresDataSourceModel

	ctx = initializeLogging(ctx)

	if !d.checkConfigured(&resp.Diagnostics) {
		return
	}

	names, err := d.bridge.Structures(ctx)
	if err != nil {
		addBridgeError(&resp.Diagnostics, "Error Listing Object Classes", err)
		return
	}

	namesValue, diags := helpers.StringListValue(ctx, names)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	data.Names = namesValue

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
