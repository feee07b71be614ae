package ldap

import (
	"fmt"
	"regexp"
	"strings"
)

// parameterPattern matches <%=parameter["NAME"]%>, tolerating whitespace
// inside the delimiters.
var parameterPattern = regexp.MustCompile(`<%=\s*parameter\["(.*?)"\]\s*%>`)

// SubstituteParameters replaces every parameter placeholder in source with
// the raw value of the named parameter. Values are inserted verbatim, so a
// value may carry additional filter syntax. Substituted values are not
// scanned again. A placeholder naming an absent parameter fails with
// ErrMissingParameter; parameters that are never referenced are ignored.
func SubstituteParameters(source string, parameters map[string]string) (string, error) {
	if !strings.Contains(source, "<%=") {
		return source, nil
	}

	var missing []string
	result := parameterPattern.ReplaceAllStringFunc(source, func(placeholder string) string {
		name := parameterPattern.FindStringSubmatch(placeholder)[1]
		value, ok := parameters[name]
		if !ok {
			missing = append(missing, name)
			return placeholder
		}
		return value
	})

	if len(missing) > 0 {
		return "", NewLDAPError("substitute", KindMissingParameter,
			fmt.Sprintf("undefined parameter(s) referenced: %s", strings.Join(missing, ", ")), nil)
	}

	return result, nil
}
