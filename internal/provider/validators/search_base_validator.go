package validators

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
)

var _ validator.String = searchBaseValidator{}

// searchBaseValidator accepts an empty string, meaning the directory root,
// or a parsable Distinguished Name.
type searchBaseValidator struct{}

func (v searchBaseValidator) Description(_ context.Context) string {
	return "value must be empty or a valid Distinguished Name (DN) without parameter placeholders"
}

func (v searchBaseValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v searchBaseValidator) ValidateString(ctx context.Context, request validator.StringRequest, response *validator.StringResponse) {
	if request.ConfigValue.IsNull() || request.ConfigValue.IsUnknown() {
		return
	}

	value := request.ConfigValue.ValueString()
	if value == "" {
		return
	}

	// Placeholders are only substituted in queries.
	if strings.Contains(value, "<%=") {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Search Base",
			fmt.Sprintf("The value %q contains a parameter placeholder. Parameters belong in the query suffix, not the configured search base.", value),
		)
		return
	}

	if _, err := ldap.ParseDN(value); err != nil {
		response.Diagnostics.AddAttributeError(
			request.Path,
			"Invalid Search Base",
			fmt.Sprintf("The value %q is not a valid Distinguished Name: %s", value, err.Error()),
		)
	}
}

// IsSearchBase returns a validator for the configured search base.
//
// Unknown values and null values are skipped from validation.
func IsSearchBase() validator.String {
	return searchBaseValidator{}
}
