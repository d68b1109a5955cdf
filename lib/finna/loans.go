package finna

import (
	"context"
	"net/url"

	"go.opentelemetry.io/otel/codes"
)

// Loans lists the patron's current checkouts.
func (c *Client) Loans(ctx context.Context) ([]Loan, error) {
	ctx, span := tracer.Start(ctx, "client:Loans")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/CheckedOut"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch loans page")
		return nil, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return parseLoans(res.String(), c.origin()), nil
}

// RenewLoan renews one checkout and returns the portal's confirmation
// message. A refused renewal comes back as a *RenewError carrying the
// refusal text.
func (c *Client) RenewLoan(ctx context.Context, loan Loan) (string, error) {
	ctx, span := tracer.Start(ctx, "client:RenewLoan")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	form := url.Values{
		"selectAllIDS[]":     {loan.RenewId},
		"renewAllIDS[]":      {loan.RenewId},
		"renewSelectedIDS[]": {loan.RenewId},
		"renewSelected":      {"1"},
	}
	res, err := c.post(ctx, true, true, c.url("MyResearch/CheckedOut"), form)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit renewal")
		return "", err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	message, err := parseRenewResult(res.String(), loan)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return message, nil
}
