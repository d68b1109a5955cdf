package finna

import (
	"context"
	"net/url"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/codes"

	"openfinna-go/lib/textutil"
)

// Buildings lists every branch/consortium the portal indexes, scraped from
// the public organisations page. The list changes rarely, so results are
// cached on the client for buildingListLifetime.
func (c *Client) Buildings(ctx context.Context) ([]Building, error) {
	ctx, span := tracer.Start(ctx, "client:Buildings")
	defer span.End()

	if cached, ok := c.responseCache.Get(buildingListCacheKey); ok {
		return cached.([]Building), nil
	}

	res, err := c.get(ctx, false, true, c.url("Content/organisations"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch organisations page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	buildings := parseBuildings(res.String())
	if len(buildings) == 0 {
		err := &ParseError{Section: "organisation list"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	c.responseCache.Set(buildingListCacheKey, buildings, gocache.DefaultExpiration)
	return buildings, nil
}

// BuildingsViaAjax lists the building facet through the search API instead
// of the organisations page. The two listings cover the same identifier
// space; this one survives markup changes but carries less curated names.
func (c *Client) BuildingsViaAjax(ctx context.Context) ([]Building, error) {
	ctx, span := tracer.Start(ctx, "client:BuildingsViaAjax")
	defer span.End()

	query := url.Values{
		"limit":   {"0"},
		"facet[]": {"building"},
	}
	res, err := c.get(ctx, false, true, c.apiURL("api/v1/search?"+query.Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch building facet")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	buildings, err := decodeBuildingFacets(res.Body())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return buildings, nil
}

// DefaultBuilding resolves the building the active library card belongs
// to: active card -> card's library chain -> normalized-name match against
// the building list. The first match wins; zero matches is a parse error.
// The result is cached until the credentials change.
func (c *Client) DefaultBuilding(ctx context.Context) (*Building, error) {
	ctx, span := tracer.Start(ctx, "client:DefaultBuilding")
	defer span.End()

	if cached := c.CachedBuilding(); cached != nil {
		return cached, nil
	}

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	cardId, err := c.SelectedCardId(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if cardId == "" {
		err := &ParseError{Section: "library card id"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res, err := c.get(ctx, true, true, c.url("LibraryCards/editCard/"+url.PathEscape(cardId)))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch card page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	chain, err := parseActiveChain(res.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	buildings, err := c.Buildings(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	building := matchBuilding(buildings, *chain)
	if building == nil {
		err := &ParseError{Section: "building"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.SetCachedBuilding(building)
	c.notifyAuthChange(nil, building)
	return building, nil
}

// matchBuilding finds the building whose normalized name equals the
// normalized chain name. Only the chain side strips its trailing code
// suffix; building display names are normalized as-is.
func matchBuilding(buildings []Building, chain UserType) *Building {
	target := textutil.NormalizeBuildingName(chain.Name, chain.Id)
	for i := range buildings {
		b := buildings[i]
		if textutil.NormalizeBuildingName(b.Name, "") == target {
			return &b
		}
	}
	return nil
}
