package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrorKind identifies the class of failure surfaced by the bridge.
type ErrorKind string

const (
	KindConnection       ErrorKind = "connection"
	KindDirectorySearch  ErrorKind = "directory_search"
	KindMultipleResults  ErrorKind = "multiple_results"
	KindSchemaResolution ErrorKind = "schema_resolution"
	KindTimestampFormat  ErrorKind = "timestamp_format"
	KindMissingParameter ErrorKind = "missing_parameter"
	KindConfiguration    ErrorKind = "configuration"
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrConnection       = errors.New("connection error")
	ErrDirectorySearch  = errors.New("directory search error")
	ErrMultipleResults  = errors.New("multiple results error")
	ErrSchemaResolution = errors.New("schema resolution error")
	ErrTimestampFormat  = errors.New("timestamp format error")
	ErrMissingParameter = errors.New("missing parameter error")
	ErrConfiguration    = errors.New("configuration error")
)

var kindSentinels = map[ErrorKind]error{
	KindConnection:       ErrConnection,
	KindDirectorySearch:  ErrDirectorySearch,
	KindMultipleResults:  ErrMultipleResults,
	KindSchemaResolution: ErrSchemaResolution,
	KindTimestampFormat:  ErrTimestampFormat,
	KindMissingParameter: ErrMissingParameter,
	KindConfiguration:    ErrConfiguration,
}

// Messages reported to bridge callers.
const (
	msgAuthenticationFailed = "Unable to authenticate using the provided credentials."
	msgConnectFailed        = "Unable to connect to the specified LDAP server."
	msgSearchFailed         = "There was a problem searching LDAP"
	msgMultipleResults      = "Multiple results matched the retrieve request (single result expected)."
	msgBlankCredentials     = "Blank security principal or credentials."
)

// LDAPError provides enhanced error information for bridge operations.
type LDAPError struct {
	Operation string    // The operation that failed
	Kind      ErrorKind // Error kind
	LDAPCode  uint16    // LDAP result code, when the cause carried one
	Message   string    // Human-readable message
	ServerMsg string    // Server-provided diagnostic message
	Cause     error     // Underlying error
}

func (e *LDAPError) Error() string {
	var parts []string

	if e.LDAPCode > 0 {
		parts = append(parts, fmt.Sprintf("LDAP %s failed (code %d)", e.Operation, e.LDAPCode))
	} else {
		parts = append(parts, fmt.Sprintf("LDAP %s failed", e.Operation))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.ServerMsg != "" && !strings.Contains(e.Message, e.ServerMsg) {
		parts = append(parts, fmt.Sprintf("server: %s", e.ServerMsg))
	}

	return strings.Join(parts, " - ")
}

func (e *LDAPError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *LDAPError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewLDAPError creates a new bridge error of the given kind. LDAP result
// information is extracted from cause when available.
func NewLDAPError(operation string, kind ErrorKind, message string, cause error) *LDAPError {
	ldapErr := &LDAPError{
		Operation: operation,
		Kind:      kind,
		Message:   message,
		Cause:     cause,
	}

	var resultErr *ldap.Error
	if errors.As(cause, &resultErr) {
		ldapErr.LDAPCode = resultErr.ResultCode
		if resultErr.Err != nil {
			ldapErr.ServerMsg = resultErr.Err.Error()
		}
	}

	return ldapErr
}

// newConnectionError classifies a dial or bind failure.
func newConnectionError(operation string, cause error) *LDAPError {
	message := msgConnectFailed
	if isAuthenticationFailure(cause) {
		message = msgAuthenticationFailed
	}
	return NewLDAPError(operation, KindConnection, message, cause)
}

// newSearchError wraps a protocol level failure during search or count.
func newSearchError(operation string, cause error) *LDAPError {
	return NewLDAPError(operation, KindDirectorySearch, fmt.Sprintf("%s: %s", msgSearchFailed, describeCause(cause)), cause)
}

func newMultipleResultsError(operation string) *LDAPError {
	return NewLDAPError(operation, KindMultipleResults, msgMultipleResults, nil)
}

func newSchemaError(operation, format string, args ...any) *LDAPError {
	return NewLDAPError(operation, KindSchemaResolution, fmt.Sprintf(format, args...), nil)
}

func isAuthenticationFailure(err error) bool {
	var resultErr *ldap.Error
	if !errors.As(err, &resultErr) {
		return false
	}

	switch resultErr.ResultCode {
	case ldap.LDAPResultInvalidCredentials,
		ldap.LDAPResultInappropriateAuthentication,
		ldap.LDAPResultStrongAuthRequired,
		ldap.LDAPResultConfidentialityRequired,
		ldap.LDAPResultAuthMethodNotSupported:
		return true
	default:
		return false
	}
}

// describeCause renders a cause for inclusion in a caller-facing message.
func describeCause(err error) string {
	if err == nil {
		return "unknown error"
	}

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		if resultErr.Err != nil && resultErr.Err.Error() != "" {
			return fmt.Sprintf("%s (%s)", getLDAPCodeMessage(resultErr.ResultCode), resultErr.Err.Error())
		}
		return getLDAPCodeMessage(resultErr.ResultCode)
	}

	return err.Error()
}

// getLDAPCodeMessage returns a human-readable message for the result codes
// a read-only bridge can encounter.
func getLDAPCodeMessage(code uint16) string {
	switch code {
	case ldap.LDAPResultOperationsError:
		return "LDAP operations error"
	case ldap.LDAPResultProtocolError:
		return "LDAP protocol error"
	case ldap.LDAPResultTimeLimitExceeded:
		return "LDAP time limit exceeded"
	case ldap.LDAPResultSizeLimitExceeded:
		return "LDAP size limit exceeded"
	case ldap.LDAPResultAuthMethodNotSupported:
		return "Authentication method not supported"
	case ldap.LDAPResultStrongAuthRequired:
		return "Strong authentication required"
	case ldap.LDAPResultReferral:
		return "LDAP referral"
	case ldap.LDAPResultAdminLimitExceeded:
		return "Administrative limit exceeded"
	case ldap.LDAPResultUnavailableCriticalExtension:
		return "Critical extension unavailable"
	case ldap.LDAPResultConfidentialityRequired:
		return "Confidentiality required"
	case ldap.LDAPResultUndefinedAttributeType:
		return "Attribute type is not defined"
	case ldap.LDAPResultInappropriateMatching:
		return "Inappropriate matching rule"
	case ldap.LDAPResultNoSuchObject:
		return "Requested object does not exist"
	case ldap.LDAPResultInvalidDNSyntax:
		return "Invalid DN syntax"
	case ldap.LDAPResultAliasDereferencingProblem:
		return "Alias dereferencing problem"
	case ldap.LDAPResultInappropriateAuthentication:
		return "Inappropriate authentication method"
	case ldap.LDAPResultInvalidCredentials:
		return "Invalid credentials"
	case ldap.LDAPResultInsufficientAccessRights:
		return "Insufficient access rights"
	case ldap.LDAPResultBusy:
		return "Server is busy"
	case ldap.LDAPResultUnavailable:
		return "Server is unavailable"
	case ldap.LDAPResultUnwillingToPerform:
		return "Server is unwilling to perform the operation"
	case ldap.LDAPResultServerDown:
		return "Server is down"
	case ldap.LDAPResultTimeout:
		return "Operation timed out"
	case ldap.LDAPResultFilterError:
		return "Invalid search filter"
	case ldap.LDAPResultConnectError:
		return "Connection error"
	case ldap.LDAPResultControlNotFound:
		return "Control not found"
	default:
		return fmt.Sprintf("Unknown LDAP error (code %d)", code)
	}
}

// WrapError wraps an error with operation context. Errors that already
// carry a kind are passed through; anything else is treated as a
// directory search failure.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		if ldapErr.Operation == "" {
			ldapErr.Operation = operation
		}
		return err
	}

	return newSearchError(operation, err)
}

// KindOf returns the kind of a bridge error, or the empty kind when err
// did not originate here.
func KindOf(err error) ErrorKind {
	var ldapErr *LDAPError
	if errors.As(err, &ldapErr) {
		return ldapErr.Kind
	}
	return ""
}
