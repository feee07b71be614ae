package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/kineticdata/peripherals-ldap/internal/ldap"
)

// initializeLogging initializes the provider and bridge subsystems for
// consistent logging. This should be called at the beginning of each data
// source Read method.
func initializeLogging(ctx context.Context) context.Context {
	// Pattern: TF_LOG_PROVIDER_LDAPBRIDGE_<SUBSYSTEM>
	ctx = tflog.NewSubsystem(ctx, "provider",
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_LDAPBRIDGE_PROVIDER"))
	return ldapclient.NewLoggingContext(ctx, "TF_LOG_PROVIDER_LDAPBRIDGE_LDAP")
}
