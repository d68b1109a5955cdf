package finna

import (
	"context"

	"go.opentelemetry.io/otel/codes"
)

// Fines lists the patron's outstanding fees together with the payable and
// total balances. Fee rows without a parseable price are dropped.
func (c *Client) Fines(ctx context.Context) (Fines, error) {
	ctx, span := tracer.Start(ctx, "client:Fines")
	defer span.End()

	if err := c.preCheck(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Fines{}, err
	}
	res, err := c.get(ctx, true, true, c.url("MyResearch/Fines"))
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch fines page")
		return Fines{}, err
	}
	if err := expectOK(res); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Fines{}, err
	}
	return parseFines(res.String()), nil
}
