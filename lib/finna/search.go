package finna

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/codes"
)

// SearchOptions scope a catalog search. A nil Building scopes the search to
// the active card's default building; Page is 1-based and Limit defaults
// to 20.
type SearchOptions struct {
	Query    string
	Building *Building
	Page     int
	Limit    int
	// also return each record's unprojected payload in RawData
	IncludeRawData bool
}

// SearchResult is one page of catalog matches. ResultCount is the total
// across all pages.
type SearchResult struct {
	ResultCount int            `json:"resultCount"`
	Records     []ResourceInfo `json:"records"`
}

func (opts SearchOptions) values() url.Values {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 20
	}
	query := url.Values{
		"lookfor": {opts.Query},
		"type":    {"AllFields"},
		"page":    {strconv.Itoa(opts.Page)},
		"limit":   {strconv.Itoa(opts.Limit)},
	}
	if opts.Building != nil {
		query.Add("filter", `~building:"`+opts.Building.Id+`"`)
	}
	for _, key := range recordKeys {
		query.Add("field[]", key)
	}
	if opts.IncludeRawData {
		query.Add("field[]", rawDataKey)
	}
	return query
}

// Search queries the record API. The session is validated first, and a
// search without an explicit building is scoped to the active card's
// default building; the request projects exactly the record fields
// ResourceInfo carries.
func (c *Client) Search(ctx context.Context, opts SearchOptions) (*SearchResult, error) {
	ctx, span := tracer.Start(ctx, "client:Search")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if opts.Building == nil {
		building, err := c.DefaultBuilding(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		opts.Building = building
	}

	res, err := c.get(ctx, false, true, c.apiURL("api/v1/search?"+opts.values().Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to query search api")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	count, records, err := decodeRecords(res.Body(), c.origin(), opts.IncludeRawData)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return &SearchResult{ResultCount: count, Records: records}, nil
}

// ResourceInfo fetches one catalog record by id. An id the API does not
// know is ErrNotFound.
func (c *Client) ResourceInfo(ctx context.Context, recordId string, includeRawData bool) (*ResourceInfo, error) {
	ctx, span := tracer.Start(ctx, "client:ResourceInfo")
	defer span.End()

	query := url.Values{"id": {recordId}}
	for _, key := range recordKeys {
		query.Add("field[]", key)
	}
	if includeRawData {
		query.Add("field[]", rawDataKey)
	}
	res, err := c.get(ctx, false, true, c.apiURL("api/v1/record?"+query.Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to query record api")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	count, records, err := decodeRecords(res.Body(), c.origin(), includeRawData)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if count == 0 || len(records) == 0 {
		span.SetStatus(codes.Error, "record not found")
		return nil, fmt.Errorf("record %s: %w", recordId, ErrNotFound)
	}
	return &records[0], nil
}
