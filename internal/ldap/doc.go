/*
Package ldap provides the directory side of the LDAP bridge.

A bridge request names a structure (an object class), a free-form query,
named parameters and optionally the fields to return. The package turns
that request into an LDAP search and the results into ordered records.

# Query Translation

A query mixes a search base fragment and a filter clause:

	OU=SubUsers(samaccountname=<%=parameter["User"]%>),OU=Users

Parameters are substituted verbatim first, so a parameter value may itself
carry a filter clause. The first balanced parenthesis group (together with
any groups that directly follow it) becomes the filter clause and is
combined with the object class constraint:

	(&(objectClass=user)(samaccountname=jdoe))

The remaining text is prepended to the configured search base:

	OU=SubUsers,OU=Users,DC=example,DC=com

A query without parentheses is all search base text.

# Operations

The Adapter exposes:

  - Count: number of matching entries, from an unpaged enumeration
  - Retrieve: zero or one record; more than one match is ErrMultipleResults
  - Search: all records from a paged search bounded by PageSize and
    MaximumPages, sorted by the requested fields
  - Structures and StructureFields: schema introspection

Each operation opens one connection through a Connector and releases it on
every exit path. Nothing is retried.

# Schema Cache

When a request names no fields, every attribute the structure may carry is
returned. The SchemaCache resolves those by walking object class superiors
up to top, and resolves attribute syntaxes by walking attribute superiors.
Results are memoized for the life of the Adapter; failures are not.

# Records

Records keep field order and hold nil for absent attributes. Generalized
time values are normalised to yyyy-MM-ddTHH:mm:ss+0000, objectSid and
objectGUID render as text, and other attributes render their first value.

# Error Handling

Every failure is an *LDAPError whose kind can be tested with errors.Is:

	if errors.Is(err, ldap.ErrMultipleResults) {
		...
	}
*/
package ldap
