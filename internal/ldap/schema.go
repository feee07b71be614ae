package ldap

import (
	"errors"
	"slices"
	"strings"
)

// Schema definition parse errors.
var (
	errInvalidDefinition  = errors.New("invalid schema definition")
	errUnterminatedString = errors.New("unterminated quoted string")
	errUnterminatedParens = errors.New("unterminated parentheses")
)

// GeneralizedTimeSyntax is the syntax OID of generalized time attributes.
const GeneralizedTimeSyntax = "1.3.6.1.4.1.1466.115.121.1.24"

// RootClass is the object class every class chain ends at.
const RootClass = "top"

// Subschema is an indexed view of a directory's attribute types and object
// classes. Lookups are case-insensitive by name or OID.
type Subschema struct {
	attributes map[string]*AttributeDefinition
	classes    map[string]*ClassDefinition
	classNames []string
	skipped    int
}

// ParseSubschema indexes the attributeTypes and objectClasses values of a
// subschema subentry. Definitions that do not parse are skipped.
func ParseSubschema(attributeTypes, objectClasses []string) *Subschema {
	s := &Subschema{
		attributes: make(map[string]*AttributeDefinition, len(attributeTypes)*2),
		classes:    make(map[string]*ClassDefinition, len(objectClasses)*2),
	}

	for _, raw := range attributeTypes {
		def, err := parseAttributeType(raw)
		if err != nil {
			s.skipped++
			continue
		}
		s.attributes[strings.ToLower(def.OID)] = def
		for _, name := range def.Names {
			s.attributes[strings.ToLower(name)] = def
		}
	}

	for _, raw := range objectClasses {
		def, err := parseObjectClass(raw)
		if err != nil {
			s.skipped++
			continue
		}
		s.classes[strings.ToLower(def.OID)] = def
		for _, name := range def.Names {
			s.classes[strings.ToLower(name)] = def
		}
		if len(def.Names) > 0 {
			s.classNames = append(s.classNames, def.Names[0])
		}
	}

	slices.Sort(s.classNames)
	s.classNames = slices.Compact(s.classNames)

	return s
}

// Attribute returns the definition of the named attribute type.
func (s *Subschema) Attribute(name string) (*AttributeDefinition, bool) {
	def, ok := s.attributes[strings.ToLower(name)]
	return def, ok
}

// Class returns the definition of the named object class.
func (s *Subschema) Class(name string) (*ClassDefinition, bool) {
	def, ok := s.classes[strings.ToLower(name)]
	return def, ok
}

// ClassNames returns the sorted primary names of all object classes.
func (s *Subschema) ClassNames() []string {
	return slices.Clone(s.classNames)
}

// Skipped reports how many definitions could not be parsed.
func (s *Subschema) Skipped() int {
	return s.skipped
}

// parseAttributeType parses an RFC 4512 AttributeTypeDescription.
// Format: ( OID NAME 'name' SUP superior SYNTAX oid{len} ... )
func parseAttributeType(s string) (*AttributeDefinition, error) {
	tokens, err := definitionTokens(s)
	if err != nil {
		return nil, err
	}

	at := &AttributeDefinition{OID: tokens[0]}

	for i := 1; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "NAME":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			at.Names = parseNames(tokens[i])
		case "SUP":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			at.Superior = unquote(tokens[i])
		case "SYNTAX":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			at.Syntax = parseSyntaxOID(tokens[i])
		case "DESC", "EQUALITY", "ORDERING", "SUBSTR", "USAGE":
			i++
		default:
			if strings.HasPrefix(tokens[i], "X-") {
				i++
			}
		}
	}

	return at, nil
}

// parseObjectClass parses an RFC 4512 ObjectClassDescription.
// Format: ( OID NAME 'name' SUP superior KIND MUST ( a $ b ) MAY c )
func parseObjectClass(s string) (*ClassDefinition, error) {
	tokens, err := definitionTokens(s)
	if err != nil {
		return nil, err
	}

	oc := &ClassDefinition{OID: tokens[0]}

	for i := 1; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i]) {
		case "NAME":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			oc.Names = parseNames(tokens[i])
		case "SUP":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			oc.Superiors = parseOIDList(tokens[i])
		case "MUST":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			oc.Must = parseOIDList(tokens[i])
		case "MAY":
			if i++; i >= len(tokens) {
				return nil, errInvalidDefinition
			}
			oc.May = parseOIDList(tokens[i])
		case "DESC":
			i++
		default:
			if strings.HasPrefix(tokens[i], "X-") {
				i++
			}
		}
	}

	return oc, nil
}

// definitionTokens strips the outer parentheses of a description and
// tokenizes its body. The first token is always the OID.
func definitionTokens(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, errInvalidDefinition
	}

	tokens, err := tokenize(s[1 : len(s)-1])
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errInvalidDefinition
	}
	return tokens, nil
}

// tokenize splits a description body on whitespace. A quoted string is one
// token including its quotes; a parenthesized list is one token holding the
// list body.
func tokenize(s string) ([]string, error) {
	var tokens []string
	var current strings.Builder
	inQuote := false
	depth := 0

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inQuote {
			current.WriteByte(ch)
			if ch == '\'' {
				inQuote = false
			}
			continue
		}

		switch ch {
		case '\'':
			inQuote = true
			current.WriteByte(ch)
		case '(':
			if depth == 0 {
				flush()
			} else {
				current.WriteByte(ch)
			}
			depth++
		case ')':
			depth--
			switch {
			case depth < 0:
				return nil, errUnterminatedParens
			case depth == 0:
				flush()
			default:
				current.WriteByte(ch)
			}
		case ' ', '\t', '\n', '\r':
			if depth > 0 {
				current.WriteByte(ch)
			} else {
				flush()
			}
		default:
			current.WriteByte(ch)
		}
	}

	if inQuote {
		return nil, errUnterminatedString
	}
	if depth != 0 {
		return nil, errUnterminatedParens
	}
	flush()

	return tokens, nil
}

// parseNames parses a NAME value: 'cn' or a list such as 'cn' 'commonName'.
func parseNames(s string) []string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "'") {
		return []string{s}
	}

	var names []string
	for part := range strings.SplitSeq(s, "'") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

// parseOIDList parses oid or a $-separated list body such as a $ b $ c.
func parseOIDList(s string) []string {
	var oids []string
	for part := range strings.SplitSeq(s, "$") {
		if part = unquote(part); part != "" {
			oids = append(oids, part)
		}
	}
	return oids
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseSyntaxOID drops any length constraint: 1.3.6.1.4.1.1466.115.121.1.15{256}.
func parseSyntaxOID(s string) string {
	s = unquote(s)
	if idx := strings.IndexByte(s, '{'); idx != -1 {
		return s[:idx]
	}
	return s
}
