package ldap

import (
	"context"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// pagedSearch drives the paged search protocol for one search call.
//
// Pages are fetched until the directory returns an empty cursor or
// maximumPages pages have been fetched. Entries are converted as each page
// arrives. On any error the accumulated records are discarded.
type pagedSearch struct {
	dir          Directory
	builder      *recordBuilder
	pageSize     int
	maximumPages int
}

// pagedResult is the outcome of a paged search before sorting.
type pagedResult struct {
	records      []*Record
	pages        int
	limitReached bool
}

func (p *pagedSearch) run(ctx context.Context, base, filter string, fields []string) (*pagedResult, error) {
	var records []*Record
	var cookie []byte
	page := 0

	for {
		result, err := p.dir.Search(ctx, &PageRequest{
			BaseDN:     base,
			Filter:     filter,
			Attributes: fields,
			PageSize:   p.pageSize,
			Cookie:     cookie,
		})
		if err != nil {
			return nil, err
		}
		page++

		records, err = p.accumulate(ctx, records, fields, result.Entries)
		if err != nil {
			return nil, err
		}

		tflog.SubsystemTrace(ctx, Subsystem, "Completed search page", map[string]any{
			"page_number":     page,
			"entries_in_page": len(result.Entries),
			"total_entries":   len(records),
			"cookie_length":   len(result.Cookie),
		})

		cookie = result.Cookie
		if page >= p.maximumPages || len(cookie) == 0 {
			break
		}
	}

	return &pagedResult{
		records:      records,
		pages:        page,
		limitReached: len(records) == page*p.pageSize,
	}, nil
}

func (p *pagedSearch) accumulate(ctx context.Context, records []*Record, fields []string, entries []*ldap.Entry) ([]*Record, error) {
	for _, entry := range entries {
		record, err := p.builder.build(ctx, fields, entry)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
