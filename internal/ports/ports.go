// Package ports declares the collaborators the analytics service depends on.
// Adapters live under internal/repository, internal/alerts and
// internal/common/auth.
package ports

import (
	"context"
	"time"

	"risk-analytics/internal/common/auth"
	"risk-analytics/internal/models"
)

// PortfolioRepository loads the completed risk analyses visible to a user.
type PortfolioRepository interface {
	GetPortfolioOverview(ctx context.Context, filters models.PortfolioFilters, sort models.SortOptions, page models.Pagination, userID string) (*models.PortfolioOverview, error)
	GetCompanyByRequestID(ctx context.Context, requestID, userID string) (*models.PortfolioRecord, error)
}

// AnalyticsCache stores computed analytics envelopes. Get reports false on a
// miss without error.
type AnalyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AlertGate deduplicates alerts across instances. Claim reports whether
// this caller took key; Release gives it back after a failed delivery.
type AlertGate interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// PeerSearcher finds companies of an industry outside the current page.
type PeerSearcher interface {
	FindPeers(ctx context.Context, industry string, excludeIDs []string, limit int) ([]models.PortfolioRecord, error)
}

// DriftNotifier delivers coverage drift alerts.
type DriftNotifier interface {
	NotifyDrift(ctx context.Context, alert models.DriftAlert) error
}

// TokenValidator resolves a bearer token to the caller's identity.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}
