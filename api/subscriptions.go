package api

import (
	"context"
	"time"
)

// Plan is a subscription tier offered by the platform.
type Plan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PriceMonthly float64  `json:"price_monthly"`
	Currency     string   `json:"currency"`
	Features     []string `json:"features,omitempty"`
}

// Subscription is the account's current plan membership.
type Subscription struct {
	ID        string     `json:"id"`
	PlanID    string     `json:"plan_id"`
	Status    string     `json:"status"`
	RenewsAt  *time.Time `json:"renews_at,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// SubscriptionsService provides access to the subscription endpoints.
type SubscriptionsService struct {
	client *Client
}

// Subscriptions returns the subscription service.
func (c *Client) Subscriptions() *SubscriptionsService {
	return &SubscriptionsService{client: c}
}

func (s *SubscriptionsService) Current(ctx context.Context) (*Subscription, error) {
	var sub Subscription
	if err := s.client.get(ctx, "/subscriptions/current", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionsService) Plans(ctx context.Context) ([]Plan, error) {
	var plans []Plan
	if err := s.client.get(ctx, "/subscriptions/plans", nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *SubscriptionsService) Subscribe(ctx context.Context, planID, paymentMethod string) (*Subscription, error) {
	body := map[string]string{
		"plan_id":        planID,
		"payment_method": paymentMethod,
	}
	var sub Subscription
	if err := s.client.post(ctx, "/subscriptions/subscribe", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionsService) Cancel(ctx context.Context) error {
	return s.client.post(ctx, "/subscriptions/cancel", nil, nil)
}
