package finna

import (
	"context"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// AccountDetails fetches the account profile. Resolving the default
// building is attempted as a side effect and cached on the client; a
// resolution failure does not fail the profile fetch.
func (c *Client) AccountDetails(ctx context.Context) (*User, error) {
	ctx, span := tracer.Start(ctx, "client:AccountDetails")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/Profile"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	user := parseUserDetails(res.String())
	if building, err := c.DefaultBuilding(ctx); err == nil {
		user.Building = building
	}
	return &user, nil
}

// SelectedCardId reports the id of the library card the session is
// currently acting as, or "" when the profile exposes none.
func (c *Client) SelectedCardId(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "client:SelectedCardId")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/Profile"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return "", err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return parseCurrentCardId(res.String()), nil
}

// DefaultPickupLocation reports the account-wide default pickup location
// together with the selectable alternatives.
func (c *Client) DefaultPickupLocation(ctx context.Context) (*PickupLocation, []PickupLocation, error) {
	ctx, span := tracer.Start(ctx, "client:DefaultPickupLocation")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/Profile"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch profile page")
		return nil, nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}

	selected, err := parseHomeLibrary(res.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	options, err := parseHomeLibraries(res.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	return selected, options, nil
}

// ChangeDefaultPickupLocation sets the account-wide default pickup
// location.
func (c *Client) ChangeDefaultPickupLocation(ctx context.Context, locationId string) error {
	ctx, span := tracer.Start(ctx, "client:ChangeDefaultPickupLocation")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	form := url.Values{"home_library": {locationId}}
	res, err := c.post(ctx, true, true, c.url("MyResearch/Profile"), form)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit pickup default")
		return err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !parseActionSuccess(res.String()) {
		err := fmt.Errorf("change default pickup location: portal reported failure")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
