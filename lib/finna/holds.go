package finna

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// Holds lists the patron's open reservations.
func (c *Client) Holds(ctx context.Context) ([]Hold, error) {
	ctx, span := tracer.Start(ctx, "client:Holds")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/Holds"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch holds page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return parseHolds(res.String(), c.origin()), nil
}

// fetchHashKey retrieves the single-use token gating hold placement for one
// record. The token is embedded in the record's holdings tab.
func (c *Client) fetchHashKey(ctx context.Context, recordId string) (string, error) {
	form := url.Values{"tab": {"holdings"}}
	res, err := c.post(ctx, true, true,
		c.url("Record/"+url.PathEscape(recordId)+"/AjaxTab"), form)
	if err != nil {
		return "", err
	}
	if err := expectOK(res); err != nil {
		return "", fmt.Errorf("fetch holdings tab: %w", err)
	}
	return parseHashKey(res.String())
}

func (c *Client) holdFormURL(recordId, hashKey string) string {
	escaped := url.PathEscape(recordId)
	return c.url("Record/" + escaped + "/Hold?id=" + url.QueryEscape(recordId) +
		"&level=title&hashKey=" + url.QueryEscape(hashKey) + "&layout=lightbox")
}

// HoldingDetails fetches the hold-placement form of one record: the
// selectable holding types plus which optional controls the form carries.
func (c *Client) HoldingDetails(ctx context.Context, recordId string) (HoldingDetails, error) {
	ctx, span := tracer.Start(ctx, "client:HoldingDetails")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HoldingDetails{}, err
	}
	hashKey, err := c.fetchHashKey(ctx, recordId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HoldingDetails{}, err
	}
	res, err := c.get(ctx, true, true, c.holdFormURL(recordId, hashKey))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch hold form")
		return HoldingDetails{}, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HoldingDetails{}, err
	}
	details, err := parseHoldingDetails(res.String())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return HoldingDetails{}, err
	}
	return details, nil
}

// PickupLocations lists the pickup locations available for one record under
// the given holding type.
func (c *Client) PickupLocations(ctx context.Context, recordId, holdingTypeId string) ([]PickupLocation, error) {
	ctx, span := tracer.Start(ctx, "client:PickupLocations")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	query := url.Values{
		"method":         {"getRequestGroupPickupLocations"},
		"id":             {recordId},
		"requestGroupId": {holdingTypeId},
	}
	res, err := c.get(ctx, true, true, c.url("AJAX/JSON?"+query.Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch pickup locations")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var response struct {
		Data struct {
			Locations []PickupLocation `json:"locations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(res.Body(), &response); err != nil {
		err = fmt.Errorf("decode pickup locations: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return response.Data.Locations, nil
}

// HoldRequest carries the hold-placement form fields. RequiredBy is the
// "valid until" date in the portal's d.m.yyyy format; Comment and Part are
// only honored when HoldingDetails reports the respective controls.
type HoldRequest struct {
	HoldingTypeId    string
	PickupLocationId string
	RequiredBy       string
	Comment          string
	Part             string
}

// MakeHold places a hold on one record. Success is signaled by the portal
// redirecting back to the holds list, so the submission is issued without
// redirect following and checked for the raw 302.
func (c *Client) MakeHold(ctx context.Context, recordId string, req HoldRequest) error {
	ctx, span := tracer.Start(ctx, "client:MakeHold")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	hashKey, err := c.fetchHashKey(ctx, recordId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	form := url.Values{
		"gatheredDetails[requestGroupId]": {req.HoldingTypeId},
		"gatheredDetails[pickUpLocation]": {req.PickupLocationId},
		"gatheredDetails[requiredBy]":     {req.RequiredBy},
		"gatheredDetails[comment]":        {req.Comment},
		"layout":                          {"lightbox"},
		"placeHold":                       {""},
	}
	if req.Part != "" {
		form.Set("gatheredDetails[part]", req.Part)
	}
	res, err := c.post(ctx, true, false, c.holdFormURL(recordId, hashKey), form)
	if err != nil && res.StatusCode() != http.StatusFound {
		span.SetStatus(codes.Error, "failed to submit hold")
		return err
	}
	if res.StatusCode() != http.StatusFound {
		err := fmt.Errorf("place hold: %w", &StatusError{Code: res.StatusCode()})
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// CancelHold cancels one reservation; the hold must still be Cancellable.
func (c *Client) CancelHold(ctx context.Context, hold Hold) error {
	ctx, span := tracer.Start(ctx, "client:CancelHold")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	form := url.Values{
		"cancelSelected":      {"1"},
		"confirm":             {"1"},
		"cancelSelectedIDS[]": {hold.ActionId},
	}
	res, err := c.post(ctx, true, true, c.url("MyResearch/Holds"), form)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit cancellation")
		return err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !parseActionSuccess(res.String()) {
		err := fmt.Errorf("cancel hold %s: portal reported failure", hold.Id)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// ChangeHoldPickupLocation moves an open reservation to another pickup
// location.
func (c *Client) ChangeHoldPickupLocation(ctx context.Context, hold Hold, locationId string) error {
	ctx, span := tracer.Start(ctx, "client:ChangeHoldPickupLocation")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	query := url.Values{
		"method":           {"changePickupLocation"},
		"requestId":        {hold.ActionId},
		"pickupLocationId": {locationId},
	}
	res, err := c.get(ctx, true, true, c.url("AJAX/JSON?"+query.Encode()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit pickup change")
		return err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	result, err := decodeAjaxResult(res.Body())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !result.Data.Success {
		err := fmt.Errorf("change pickup location: %s", result.Data.SysMessage)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
