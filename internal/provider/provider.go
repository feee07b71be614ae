package provider

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/int64validator"
	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/ephemeral"
	"github.com/hashicorp/terraform-plugin-framework/function"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
	"github.com/kineticdata/peripherals-ldap/internal/provider/validators"
)

// Ensure LDAPBridgeProvider satisfies various provider interfaces.
var _ provider.Provider = &LDAPBridgeProvider{}
var _ provider.ProviderWithFunctions = &LDAPBridgeProvider{}
var _ provider.ProviderWithEphemeralResources = &LDAPBridgeProvider{}
var _ provider.ProviderWithConfigValidators = &LDAPBridgeProvider{}

// LDAPBridgeProvider defines the provider implementation.
type LDAPBridgeProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string

	// connector overrides how the adapter reaches the directory. Nil means
	// dial the configured server.
	connector ldapclient.Connector
}

// LDAPBridgeProviderModel describes the provider data model.
type LDAPBridgeProviderModel struct {
	// Connection settings
	Server         types.String `tfsdk:"server"`
	Port           types.Int64  `tfsdk:"port"`
	UseSSL         types.Bool   `tfsdk:"use_ssl"`
	SkipTLSVerify  types.Bool   `tfsdk:"skip_tls_verify"`
	ConnectTimeout types.Int64  `tfsdk:"connect_timeout"`

	// Authentication settings
	Anonymous   types.Bool   `tfsdk:"anonymous"`
	Principal   types.String `tfsdk:"principal"`
	Credentials types.String `tfsdk:"credentials"`

	// Search settings
	SearchBase     types.String `tfsdk:"search_base"`
	PageSize       types.Int64  `tfsdk:"page_size"`
	MaximumPages   types.Int64  `tfsdk:"maximum_pages"`
	MultiValueJSON types.Bool   `tfsdk:"multi_value_json"`
}

// ProviderData is handed to every data source by Configure.
type ProviderData struct {
	Bridge Bridge
}

func (p *LDAPBridgeProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "ldapbridge"
	resp.Version = p.version
}

func (p *LDAPBridgeProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The LDAP bridge provider reads directory entries through the LDAP bridge adapter. " +
			"Queries are LDAP filters with `<%= parameter[\"name\"] %>` placeholders, optionally followed by a search base suffix.",
		Attributes: map[string]schema.Attribute{
			// Connection settings
			"server": schema.StringAttribute{
				MarkdownDescription: "Directory host name or address. Defaults to `127.0.0.1`. " +
					"Can be set via the `LDAPBRIDGE_SERVER` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"port": schema.Int64Attribute{
				MarkdownDescription: "Directory port. Defaults to `389`. " +
					"Can be set via the `LDAPBRIDGE_PORT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.Between(1, 65535),
				},
			},
			"use_ssl": schema.BoolAttribute{
				MarkdownDescription: "Connect with `ldaps://` instead of `ldap://`. Defaults to `false`. " +
					"Can be set via the `LDAPBRIDGE_USE_SSL` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip verification of the server certificate. Only use this against test directories. " +
					"Can be set via the `LDAPBRIDGE_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Dial and request timeout in seconds. Defaults to `30`. " +
					"Can be set via the `LDAPBRIDGE_TIMEOUT` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},

			// Authentication settings
			"anonymous": schema.BoolAttribute{
				MarkdownDescription: "Skip the bind and search anonymously. Defaults to `false`. " +
					"Can be set via the `LDAPBRIDGE_ANONYMOUS` environment variable.",
				Optional: true,
			},
			"principal": schema.StringAttribute{
				MarkdownDescription: "Bind DN used for simple authentication. " +
					"Can be set via the `LDAPBRIDGE_PRINCIPAL` environment variable.",
				Optional: true,
			},
			"credentials": schema.StringAttribute{
				MarkdownDescription: "Password used for simple authentication. " +
					"Can be set via the `LDAPBRIDGE_CREDENTIALS` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Search settings
			"search_base": schema.StringAttribute{
				MarkdownDescription: "Base DN every search descends from (e.g., `dc=example,dc=com`). " +
					"Can be set via the `LDAPBRIDGE_SEARCH_BASE` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsSearchBase(),
				},
			},
			"page_size": schema.Int64Attribute{
				MarkdownDescription: "Entries requested per page. Defaults to `50`. " +
					"Can be set via the `LDAPBRIDGE_PAGE_SIZE` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"maximum_pages": schema.Int64Attribute{
				MarkdownDescription: "Upper bound on pages fetched per search. Defaults to `20`. " +
					"Can be set via the `LDAPBRIDGE_MAXIMUM_PAGES` environment variable.",
				Optional: true,
				Validators: []validator.Int64{
					int64validator.AtLeast(1),
				},
			},
			"multi_value_json": schema.BoolAttribute{
				MarkdownDescription: "Render multi-valued attributes as a JSON array string instead of the first value. " +
					"Defaults to `false`. Can be set via the `LDAPBRIDGE_MULTI_VALUE_JSON` environment variable.",
				Optional: true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *LDAPBridgeProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// A bind needs both halves of the credential pair
		providervalidator.RequiredTogether(
			path.MatchRoot("principal"),
			path.MatchRoot("credentials"),
		),
	}
}

func (p *LDAPBridgeProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data LDAPBridgeProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring LDAP bridge provider", map[string]any{
		"version": p.version,
	})

	config := p.buildBridgeConfig(&data)

	var opts []ldapclient.Option
	if p.connector != nil {
		opts = append(opts, ldapclient.WithConnector(p.connector))
	}

	adapter, err := ldapclient.NewAdapter(config, opts...)
	if err != nil {
		resp.Diagnostics.AddError(
			"Invalid LDAP Bridge Configuration",
			"The provider configuration was rejected. "+
				"Please verify your configuration settings and LDAPBRIDGE_* environment variables.\n\n"+
				"Configuration Error: "+err.Error(),
		)
		return
	}

	// Bind once up front so a bad server or credential fails the plan early.
	start := time.Now()
	if err := adapter.Initialize(ctx); err != nil {
		tflog.Error(ctx, "Directory initialization failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Connect to LDAP Server",
			"The provider could not bind to the configured directory. "+
				"Please verify the server, port and credentials.\n\n"+
				"Connection Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "LDAP bridge provider configured successfully", map[string]any{
		"server":      config.Server,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	providerData := &ProviderData{Bridge: adapter}

	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// configureLogging adds the provider fields every log line carries.
func (p *LDAPBridgeProvider) configureLogging(ctx context.Context) context.Context {
	ctx = tflog.SetField(ctx, "provider", "ldapbridge")
	ctx = tflog.SetField(ctx, "provider_version", p.version)
	ctx = ldapclient.NewLoggingContext(ctx, "TF_LOG_PROVIDER_LDAPBRIDGE_LDAP")

	tflog.Debug(ctx, "LDAP bridge provider logging configured")

	return ctx
}

// buildBridgeConfig resolves every setting from the provider block, then the
// environment, then the bridge defaults.
func (p *LDAPBridgeProvider) buildBridgeConfig(data *LDAPBridgeProviderModel) *ldapclient.Config {
	config := ldapclient.DefaultConfig()

	if server := p.getStringValue(data.Server, "LDAPBRIDGE_SERVER"); server != "" {
		config.Server = server
	}
	config.Port = int(p.getInt64Value(data.Port, "LDAPBRIDGE_PORT", int64(config.Port)))
	config.UseSSL = p.getBoolValue(data.UseSSL, "LDAPBRIDGE_USE_SSL", config.UseSSL)
	config.SkipTLSVerify = p.getBoolValue(data.SkipTLSVerify, "LDAPBRIDGE_SKIP_TLS_VERIFY", config.SkipTLSVerify)

	timeout := p.getInt64Value(data.ConnectTimeout, "LDAPBRIDGE_TIMEOUT", int64(config.Timeout/time.Second))
	config.Timeout = time.Duration(timeout) * time.Second

	config.Anonymous = p.getBoolValue(data.Anonymous, "LDAPBRIDGE_ANONYMOUS", config.Anonymous)
	config.Principal = p.getStringValue(data.Principal, "LDAPBRIDGE_PRINCIPAL")
	config.Credentials = p.getStringValue(data.Credentials, "LDAPBRIDGE_CREDENTIALS")

	config.SearchBase = p.getStringValue(data.SearchBase, "LDAPBRIDGE_SEARCH_BASE")
	config.PageSize = int(p.getInt64Value(data.PageSize, "LDAPBRIDGE_PAGE_SIZE", int64(config.PageSize)))
	config.MaximumPages = int(p.getInt64Value(data.MaximumPages, "LDAPBRIDGE_MAXIMUM_PAGES", int64(config.MaximumPages)))
	config.MultiValueJSON = p.getBoolValue(data.MultiValueJSON, "LDAPBRIDGE_MULTI_VALUE_JSON", config.MultiValueJSON)

	return config
}

// Helper functions for configuration value resolution

func (p *LDAPBridgeProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *LDAPBridgeProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPBridgeProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *LDAPBridgeProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		// The bridge is read-only
	}
}

func (p *LDAPBridgeProvider) EphemeralResources(ctx context.Context) []func() ephemeral.EphemeralResource {
	return []func() ephemeral.EphemeralResource{
		// No ephemeral resources defined yet
	}
}

func (p *LDAPBridgeProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewCountDataSource,
		NewRecordDataSource,
		NewRecordsDataSource,
		NewStructureDataSource,
		NewStructuresDataSource,
	}
}

func (p *LDAPBridgeProvider) Functions(ctx context.Context) []func() function.Function {
	return []func() function.Function{
		NewBuildFilterFunction,
		NewSplitQueryFunction,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &LDAPBridgeProvider{
			version: version,
		}
	}
}
