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
var _ datasource.DataSource = &StructureDataSource{}
var _ datasource.DataSourceWithConfigure = &StructureDataSource{}

func NewStructureDataSource() datasource.DataSource {
	return &StructureDataSource{}
}

// StructureDataSource resolves the attributes an object class may carry.
type StructureDataSource struct {
	bridgeDataSource
}

// StructureDataSourceModel describes the data source data model.
type StructureDataSourceModel struct {
	Name   types.String `tfsdk:"name"`
	Fields types.List   `tfsdk:"fields"`
}

func (d *StructureDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_structure"
}

func (d *StructureDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Resolves the attributes an entry of an object class may carry, " +
			"including those inherited from superior classes.",
		Attributes: map[string]schema.Attribute{
			"name": schema.StringAttribute{
				MarkdownDescription: "Object class name (e.g., `inetOrgPerson`).",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"fields": schema.ListAttribute{
				MarkdownDescription: "Required and optional attribute names of the class and its superior classes, sorted.",
				ElementType:         types.StringType,
				Computed:            true,
			},
		},
	}
}

func (d *StructureDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data StructureDataSourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() || !d.checkConfigured(&resp.Diagnostics) {
		return
	}

	tflog.Debug(ctx, "Resolving object class attributes", map[string]any{
		"structure": data.Name.ValueString(),
	})

	fields, err := d.bridge.StructureFields(ctx, data.Name.ValueString())
	if err != nil {
		addBridgeError(&resp.Diagnostics, "Error Resolving Object Class", err)
		return
	}

	fieldsValue, diags := helpers.StringListValue(ctx, fields)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	data.Fields = fieldsValue

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
