package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
)

// Bridge is the set of adapter operations the data sources read through.
type Bridge interface {
	Count(ctx context.Context, req *ldapclient.Request) (int64, error)
	Retrieve(ctx context.Context, req *ldapclient.Request) (*ldapclient.Record, error)
	Search(ctx context.Context, req *ldapclient.Request) (*ldapclient.RecordList, error)
	Structures(ctx context.Context) ([]string, error)
	StructureFields(ctx context.Context, name string) ([]string, error)
}

var _ Bridge = (*ldapclient.Adapter)(nil)

// bridgeDataSource carries the configured bridge. Data sources embed it for
// their Configure method.
type bridgeDataSource struct {
	bridge Bridge
}

func (d *bridgeDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	// Prevent panic if the provider has not been configured.
	if req.ProviderData == nil {
		return
	}

	providerData, ok := req.ProviderData.(*ProviderData)
	if !ok {
		resp.Diagnostics.AddError(
			"Unexpected Data Source Configure Type",
			fmt.Sprintf("Expected *provider.ProviderData, got: %T. Please report this issue to the provider developers.", req.ProviderData),
		)
		return
	}

	d.bridge = providerData.Bridge
}

// checkConfigured reports an error when Read runs before Configure.
func (d *bridgeDataSource) checkConfigured(diags *diag.Diagnostics) bool {
	if d.bridge == nil {
		diags.AddError(
			"Provider Not Configured",
			"The LDAP bridge provider has not been configured. Please report this issue to the provider developers.",
		)
		return false
	}
	return true
}

// addBridgeError turns an adapter failure into a diagnostic, preferring the
// user-facing message the adapter attached.
func addBridgeError(diags *diag.Diagnostics, summary string, err error) {
	detail := err.Error()

	var ldapErr *ldapclient.LDAPError
	if errors.As(err, &ldapErr) && ldapErr.Message != "" {
		detail = ldapErr.Message
	}

	if kind := ldapclient.KindOf(err); kind != "" {
		detail = fmt.Sprintf("%s\n\nError kind: %s", detail, kind)
	}

	diags.AddError(summary, detail)
}
