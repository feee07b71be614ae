package ldap

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// Subsystem is the tflog subsystem the bridge core logs under.
const Subsystem = "ldap"

// NewLoggingContext registers the ldap subsystem on ctx. Its level is read
// from levelEnv.
func NewLoggingContext(ctx context.Context, levelEnv string) context.Context {
	return tflog.NewSubsystem(ctx, Subsystem, tflog.WithLevelFromEnv(levelEnv))
}

// LogOperation is a helper function to log an operation with timing.
func LogOperation(ctx context.Context, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	// Add operation to fields
	if fields == nil {
		fields = make(map[string]any)
	}
	fields["operation"] = operation

	tflog.SubsystemDebug(ctx, Subsystem, "Starting operation", fields)

	err := fn()

	fields["duration_ms"] = time.Since(start).Milliseconds()

	if err != nil {
		LogLDAPError(ctx, operation, err, fields)
	} else {
		tflog.SubsystemDebug(ctx, Subsystem, "Operation completed successfully", fields)
	}

	return err
}

// LogLDAPError logs bridge and LDAP specific error information.
func LogLDAPError(ctx context.Context, operation string, err error, fields map[string]any) {
	logged := make(map[string]any, len(fields)+4)
	maps.Copy(logged, fields)

	logged["operation"] = operation
	logged["error"] = err.Error()

	if kind := KindOf(err); kind != "" {
		logged["error_kind"] = string(kind)
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		logged["ldap_result_code"] = resultErr.ResultCode
		if resultErr.MatchedDN != "" {
			logged["ldap_matched_dn"] = resultErr.MatchedDN
		}
		if resultErr.Err != nil {
			logged["ldap_diagnostic_message"] = resultErr.Err.Error()
		}
	}

	tflog.SubsystemError(ctx, Subsystem, "LDAP operation failed", SanitizeFields(logged))
}

// LogConnectionEvent logs connection-related events.
func LogConnectionEvent(ctx context.Context, event string, fields map[string]any) {
	logged := SanitizeFields(fields)
	logged["event"] = event

	switch event {
	case "connection_established", "authentication_success":
		tflog.SubsystemInfo(ctx, Subsystem, "Connection event", logged)
	case "connection_failed", "authentication_failed", "release_failed":
		tflog.SubsystemError(ctx, Subsystem, "Connection event", logged)
	default:
		tflog.SubsystemDebug(ctx, Subsystem, "Connection event", logged)
	}
}

// SanitizeFields returns a copy of fields with sensitive values masked.
func SanitizeFields(fields map[string]any) map[string]any {
	sanitized := make(map[string]any, len(fields))

	sensitiveKeys := map[string]bool{
		"password":    true,
		"passwd":      true,
		"secret":      true,
		"token":       true,
		"credential":  true,
		"credentials": true,
	}

	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
		} else {
			sanitized[k] = v
		}
	}

	return sanitized
}

// requestFields describes a request for logging. Parameter values are not
// logged since they may carry user data.
func requestFields(req *Request) map[string]any {
	if req == nil {
		return nil
	}

	fields := map[string]any{
		"structure": req.Structure,
		"query":     req.Query,
	}
	if len(req.Parameters) > 0 {
		fields["parameter_count"] = len(req.Parameters)
	}
	if len(req.Fields) > 0 {
		fields["field_count"] = len(req.Fields)
	}
	return fields
}
