package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttributeType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *AttributeDefinition
		wantErr bool
	}{
		{
			name:  "syntax with length",
			input: "( 2.5.4.3 NAME ( 'cn' 'commonName' ) DESC 'RFC4519: common name(s) for which the entity is known by' SUP name )",
			want:  &AttributeDefinition{OID: "2.5.4.3", Names: []string{"cn", "commonName"}, Superior: "name"},
		},
		{
			name:  "generalized time",
			input: "( 1.2.840.113556.1.2.2 NAME 'whenChanged' SYNTAX '1.3.6.1.4.1.1466.115.121.1.24' SINGLE-VALUE NO-USER-MODIFICATION )",
			want:  &AttributeDefinition{OID: "1.2.840.113556.1.2.2", Names: []string{"whenChanged"}, Syntax: GeneralizedTimeSyntax},
		},
		{
			name:  "length constraint and extensions",
			input: "( 2.5.4.41 NAME 'name' EQUALITY caseIgnoreMatch SUBSTR caseIgnoreSubstringsMatch SYNTAX 1.3.6.1.4.1.1466.115.121.1.15{32768} X-ORIGIN ( 'RFC 4519' 'user defined' ) )",
			want:  &AttributeDefinition{OID: "2.5.4.41", Names: []string{"name"}, Syntax: directoryStringSyntax},
		},
		{
			name:    "missing parentheses",
			input:   "2.5.4.3 NAME 'cn'",
			wantErr: true,
		},
		{
			name:    "unterminated string",
			input:   "( 2.5.4.3 NAME 'cn )",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "( )",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAttributeType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectClass(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *ClassDefinition
	}{
		{
			name:  "abstract root",
			input: "( 2.5.6.0 NAME 'top' ABSTRACT MUST objectClass )",
			want:  &ClassDefinition{OID: "2.5.6.0", Names: []string{"top"}, Must: []string{"objectClass"}},
		},
		{
			name:  "lists",
			input: "( 2.5.6.6 NAME 'person' DESC 'RFC2256: a person' SUP top STRUCTURAL MUST ( sn $ cn ) MAY ( userPassword $ telephoneNumber $ seeAlso $ description ) )",
			want: &ClassDefinition{
				OID:       "2.5.6.6",
				Names:     []string{"person"},
				Superiors: []string{"top"},
				Must:      []string{"sn", "cn"},
				May:       []string{"userPassword", "telephoneNumber", "seeAlso", "description"},
			},
		},
		{
			name:  "active directory style",
			input: "( 1.2.840.113556.1.5.9 NAME 'user' SUP organizationalPerson STRUCTURAL MAY (o $ uid $ mail ) )",
			want: &ClassDefinition{
				OID:       "1.2.840.113556.1.5.9",
				Names:     []string{"user"},
				Superiors: []string{"organizationalPerson"},
				May:       []string{"o", "uid", "mail"},
			},
		},
		{
			name:  "multiple superiors",
			input: "( 1.1 NAME 'mixed' SUP ( a $ b ) AUXILIARY )",
			want:  &ClassDefinition{OID: "1.1", Names: []string{"mixed"}, Superiors: []string{"a", "b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseObjectClass(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSubschema(t *testing.T) {
	schema := ParseSubschema(
		[]string{
			"( 2.5.4.41 NAME 'name' SYNTAX 1.3.6.1.4.1.1466.115.121.1.15{32768} )",
			"( 2.5.4.3 NAME ( 'cn' 'commonName' ) SUP name )",
			"not a definition",
		},
		[]string{
			"( 2.5.6.0 NAME 'top' ABSTRACT MUST objectClass )",
			"( 2.5.6.6 NAME 'person' SUP top STRUCTURAL MUST ( sn $ cn ) )",
		},
	)

	def, ok := schema.Attribute("COMMONNAME")
	require.True(t, ok)
	assert.Equal(t, "2.5.4.3", def.OID)

	def, ok = schema.Attribute("2.5.4.41")
	require.True(t, ok)
	assert.Equal(t, directoryStringSyntax, def.Syntax)

	class, ok := schema.Class("Person")
	require.True(t, ok)
	assert.Equal(t, []string{"top"}, class.Superiors)

	_, ok = schema.Class("user")
	assert.False(t, ok)

	assert.Equal(t, []string{"person", "top"}, schema.ClassNames())
	assert.Equal(t, 1, schema.Skipped())
}
