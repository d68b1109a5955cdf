package finna

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// organisationInfoURL builds the anonymous organisation-info AJAX call.
// The endpoint speaks the raw organisation id, not the facet-style
// "0/<id>/" form.
func (c *Client) organisationInfoURL(parentId string, params url.Values) string {
	query := url.Values{
		"method":     {"getOrganisationInfo"},
		"parent[id]": {parentId},
	}
	for key, values := range params {
		query["params["+key+"]"] = values
	}
	return c.url("AJAX/JSON?" + query.Encode())
}

// Libraries lists the service points of one building in summary form:
// identity, contact info, address and the currently-open flag. Per-day
// schedules, images and the like need the follow-up detail call, see
// Library.
func (c *Client) Libraries(ctx context.Context, building Building) ([]Library, error) {
	ctx, span := tracer.Start(ctx, "client:Libraries")
	defer span.End()

	infoUrl := c.organisationInfoURL(building.RawId(), url.Values{
		"action": {"consortium"},
	})
	res, err := c.get(ctx, false, true, infoUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch library list")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	libraries, err := decodeLibraries(res.Body())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return libraries, nil
}

// Library fetches one service point with full details. The summary comes
// from the list call and is then enriched in place by the detail call;
// detail-only fields (images, links, services, schedule days, slogan)
// never overwrite summary fields. An unknown id is ErrNotFound.
func (c *Client) Library(ctx context.Context, building Building, libraryId string) (*Library, error) {
	ctx, span := tracer.Start(ctx, "client:Library")
	defer span.End()

	libraries, err := c.Libraries(ctx, building)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var library *Library
	for i := range libraries {
		if libraries[i].Id == libraryId {
			library = &libraries[i]
			break
		}
	}
	if library == nil {
		span.SetStatus(codes.Error, "library not found")
		return nil, ErrNotFound
	}

	infoUrl := c.organisationInfoURL(building.RawId(), url.Values{
		"action":      {"details"},
		"id":          {libraryId},
		"fullDetails": {"1"},
	})
	res, err := c.get(ctx, false, true, infoUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch library details")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := mergeLibraryDetails(library, res.Body()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return library, nil
}
