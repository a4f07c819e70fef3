package api

import (
	"context"
	"net/url"
)

// DashboardStats is the headline summary for the account dashboard.
type DashboardStats struct {
	ActiveContracts int     `json:"active_contracts"`
	OpenEscrows     int     `json:"open_escrows"`
	TotalVolume     float64 `json:"total_volume"`
	PendingActions  int     `json:"pending_actions"`
}

// SeriesPoint is one bucket of a time-series statistic.
type SeriesPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// AnalyticsService provides access to the analytics endpoints.
type AnalyticsService struct {
	client *Client
}

// Analytics returns the analytics service.
func (c *Client) Analytics() *AnalyticsService {
	return &AnalyticsService{client: c}
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.client.get(ctx, "/analytics/dashboard", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Transactions returns transaction counts bucketed by period ("day", "week", "month").
func (s *AnalyticsService) Transactions(ctx context.Context, period string) ([]SeriesPoint, error) {
	return s.series(ctx, "/analytics/transactions", period)
}

// Revenue returns revenue totals bucketed by period.
func (s *AnalyticsService) Revenue(ctx context.Context, period string) ([]SeriesPoint, error) {
	return s.series(ctx, "/analytics/revenue", period)
}

func (s *AnalyticsService) series(ctx context.Context, path, period string) ([]SeriesPoint, error) {
	var q url.Values
	if period != "" {
		q = url.Values{"period": []string{period}}
	}
	var points []SeriesPoint
	if err := s.client.get(ctx, path, q, &points); err != nil {
		return nil, err
	}
	return points, nil
}
