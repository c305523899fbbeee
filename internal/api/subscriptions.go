package api

import (
	"context"
	"log/slog"
	"net/http"
)

// ListSubscriptions returns the user's subscription history.
func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	if err := c.getJSON(ctx, "/subscriptions", &subs); err != nil {
		return nil, err
	}

	return subs, nil
}

// CurrentSubscription returns the active subscription.
func (c *Client) CurrentSubscription(ctx context.Context) (*Subscription, error) {
	var s Subscription
	if err := c.getJSON(ctx, "/subscriptions/current", &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// CreateSubscription subscribes the user to a plan.
func (c *Client) CreateSubscription(ctx context.Context, req SubscriptionCreateRequest) (*Subscription, error) {
	c.logger.Info("creating subscription", slog.Int64("plan_id", req.PlanID))

	var s Subscription
	if err := c.sendJSON(ctx, http.MethodPost, "/subscriptions", req, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

type planChangeRequest struct {
	PlanID int64 `json:"planId"`
}

// UpgradeSubscription moves the subscription to a larger plan. Eligibility
// is the server's call — the client just reports the outcome.
func (c *Client) UpgradeSubscription(ctx context.Context, planID int64) (*Subscription, error) {
	c.logger.Info("upgrading subscription", slog.Int64("plan_id", planID))

	var s Subscription
	if err := c.sendJSON(ctx, http.MethodPost, "/subscriptions/upgrade", planChangeRequest{PlanID: planID}, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// DowngradeSubscription moves the subscription to a smaller plan.
func (c *Client) DowngradeSubscription(ctx context.Context, planID int64) (*Subscription, error) {
	c.logger.Info("downgrading subscription", slog.Int64("plan_id", planID))

	var s Subscription
	if err := c.sendJSON(ctx, http.MethodPost, "/subscriptions/downgrade", planChangeRequest{PlanID: planID}, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

// CancelSubscription cancels the active subscription.
func (c *Client) CancelSubscription(ctx context.Context) error {
	c.logger.Info("canceling subscription")

	return c.sendJSON(ctx, http.MethodPost, "/subscriptions/cancel", nil, nil)
}

// RenewSubscription renews the active subscription for another term.
func (c *Client) RenewSubscription(ctx context.Context) (*Subscription, error) {
	c.logger.Info("renewing subscription")

	var s Subscription
	if err := c.sendJSON(ctx, http.MethodPost, "/subscriptions/renew", nil, &s); err != nil {
		return nil, err
	}

	return &s, nil
}
