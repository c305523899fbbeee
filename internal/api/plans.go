package api

import (
	"context"
	"fmt"
)

// ListPlans returns the plan catalogue.
func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := c.getJSON(ctx, "/plans", &plans); err != nil {
		return nil, err
	}

	return plans, nil
}

// GetPlan retrieves one plan.
func (c *Client) GetPlan(ctx context.Context, id int64) (*Plan, error) {
	var p Plan
	if err := c.getJSON(ctx, fmt.Sprintf("/plans/%d", id), &p); err != nil {
		return nil, err
	}

	return &p, nil
}
