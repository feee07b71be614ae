package ldap

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// asyncBufferSize is the entry buffer of unpaged enumerations.
const asyncBufferSize = 64

// searchConn is the part of a go-ldap connection a directory uses.
type searchConn interface {
	Search(*ldap.SearchRequest) (*ldap.SearchResult, error)
	SearchAsync(context.Context, *ldap.SearchRequest, int) ldap.Response
	Close() error
}

var _ searchConn = (*ldap.Conn)(nil)

// directory implements Directory over a single go-ldap connection. It is
// owned by one operation and is not safe for concurrent use.
type directory struct {
	conn      searchConn
	timeLimit int

	schema *Subschema
}

func (d *directory) Search(ctx context.Context, req *PageRequest) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pagingControl := ldap.NewControlPaging(uint32(req.PageSize))
	if len(req.Cookie) > 0 {
		pagingControl.SetCookie(req.Cookie)
	}

	ldapReq := ldap.NewSearchRequest(
		req.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // No size limit when paging
		d.timeLimit,
		false,
		req.Filter,
		req.Attributes,
		[]ldap.Control{pagingControl},
	)

	result, err := d.conn.Search(ldapReq)
	if err != nil {
		return nil, err
	}

	page := &Page{Entries: result.Entries}
	if responseControl, ok := ldap.FindControl(result.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging); ok {
		page.Cookie = responseControl.Cookie
	}

	return page, nil
}

func (d *directory) Enumerate(ctx context.Context, base, filter string, attributes []string, fn func(*ldap.Entry) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ldapReq := ldap.NewSearchRequest(
		base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		d.timeLimit,
		false,
		filter,
		attributes,
		nil,
	)

	response := d.conn.SearchAsync(ctx, ldapReq, asyncBufferSize)
	for response.Next() {
		entry := response.Entry()
		if entry == nil {
			// Referral
			continue
		}

		if err := fn(entry); err != nil {
			if errors.Is(err, ErrStopEnumeration) {
				return nil
			}
			return err
		}
	}

	return response.Err()
}

func (d *directory) AttributeDefinition(ctx context.Context, name string) (*AttributeDefinition, error) {
	schema, err := d.subschema(ctx)
	if err != nil {
		return nil, err
	}

	def, ok := schema.Attribute(name)
	if !ok {
		return nil, newSchemaError("attribute definition", "attribute %q is not defined in the directory schema", name)
	}
	return def, nil
}

func (d *directory) ClassDefinition(ctx context.Context, name string) (*ClassDefinition, error) {
	schema, err := d.subschema(ctx)
	if err != nil {
		return nil, err
	}

	def, ok := schema.Class(name)
	if !ok {
		return nil, newSchemaError("class definition", "object class %q is not defined in the directory schema", name)
	}
	return def, nil
}

func (d *directory) ClassNames(ctx context.Context) ([]string, error) {
	schema, err := d.subschema(ctx)
	if err != nil {
		return nil, err
	}
	return schema.ClassNames(), nil
}

func (d *directory) Close() error {
	return d.conn.Close()
}

// subschema reads and parses the subschema subentry advertised by the root
// DSE. The result is kept for the life of the connection.
func (d *directory) subschema(ctx context.Context) (*Subschema, error) {
	if d.schema != nil {
		return d.schema, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rootDSE, err := d.conn.Search(ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0,
		d.timeLimit,
		false,
		"(objectClass=*)",
		[]string{"subschemaSubentry"},
		nil,
	))
	if err != nil {
		return nil, NewLDAPError("read root DSE", KindSchemaResolution, describeCause(err), err)
	}

	var subschemaDN string
	if len(rootDSE.Entries) > 0 {
		subschemaDN = rootDSE.Entries[0].GetEqualFoldAttributeValue("subschemaSubentry")
	}
	if subschemaDN == "" {
		return nil, newSchemaError("read root DSE", "directory does not advertise a subschema subentry")
	}

	result, err := d.conn.Search(ldap.NewSearchRequest(
		subschemaDN,
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0,
		d.timeLimit,
		false,
		"(objectClass=subschema)",
		[]string{"attributeTypes", "objectClasses"},
		nil,
	))
	if err != nil {
		return nil, NewLDAPError("read subschema", KindSchemaResolution,
			fmt.Sprintf("%s: %s", subschemaDN, describeCause(err)), err)
	}
	if len(result.Entries) == 0 {
		return nil, newSchemaError("read subschema", "subschema subentry %s not found", subschemaDN)
	}

	entry := result.Entries[0]
	d.schema = ParseSubschema(
		entry.GetEqualFoldAttributeValues("attributeTypes"),
		entry.GetEqualFoldAttributeValues("objectClasses"),
	)

	return d.schema, nil
}
