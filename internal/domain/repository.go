package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ChatCompleter defines the interface for outbound chat-completion calls.
// Implementations return the first choice's text content.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// CommodityCodeRepository defines lookups against the commodity-code
// reference data. FindByHSCode expects a normalized 6-digit HS code and
// returns matches in insertion order.
type CommodityCodeRepository interface {
	FindByHSCode(ctx context.Context, hsCode string) ([]CandidateCode, error)
}
