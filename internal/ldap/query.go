package ldap

import (
	"fmt"
	"strings"
)

// SplitQuery separates a substituted query into its filter clause and the
// text that extends the search base.
//
// The filter clause starts at the first '(' and ends at the parenthesis
// that brings the nesting depth back to zero. Groups that directly follow
// it, such as "(a=b)(c=d)", belong to the same clause, as do stray closing
// parentheses introduced by parameter values. Whatever surrounds the clause
// is concatenated without a separator, and the joined text is trimmed of
// surrounding whitespace to form the search base addition. A query without
// parentheses is entirely search base text, trimmed the same way.
func SplitQuery(query string) (filterClause, searchBaseAddition string) {
	open := strings.IndexByte(query, '(')
	if open < 0 {
		return "", strings.TrimSpace(query)
	}

	end := closeGroup(query, open)
scan:
	for end < len(query) {
		switch query[end] {
		case '(':
			end = closeGroup(query, end)
		case ')':
			end++
		default:
			break scan
		}
	}

	return query[open:end], strings.TrimSpace(query[:open] + query[end:])
}

// closeGroup returns the index just past the parenthesis matching the one
// at open, or len(s) when the group is never closed.
func closeGroup(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

// BuildFilter substitutes parameters into query and combines its filter
// clause with the object class constraint for structure.
func BuildFilter(query string, parameters map[string]string, structure string) (string, error) {
	substituted, err := SubstituteParameters(query, parameters)
	if err != nil {
		return "", err
	}

	clause, _ := SplitQuery(substituted)
	if clause == "" {
		return fmt.Sprintf("(objectClass=%s)", structure), nil
	}
	return fmt.Sprintf("(&(objectClass=%s)%s)", structure, clause), nil
}

// BuildSearchBase substitutes parameters into query and prepends its search
// base addition, if any, to base.
func BuildSearchBase(query string, parameters map[string]string, base string) (string, error) {
	substituted, err := SubstituteParameters(query, parameters)
	if err != nil {
		return "", err
	}

	_, addition := SplitQuery(substituted)
	if addition == "" {
		return base, nil
	}
	return addition + "," + base, nil
}
