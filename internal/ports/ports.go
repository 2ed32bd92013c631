package ports

import (
	"context"

	"MarketBridge/internal/domain"
	"MarketBridge/internal/payload"
)

// FactExtractor turns a listing URL into a canonical fact record. It never
// fails; extraction problems surface as fallback facts with a note.
type FactExtractor interface {
	Extract(ctx context.Context, sourceURL string) domain.SourceFact
}

// ContextProvider gathers auxiliary web evidence for a product title.
// Best-effort only: failures contribute empty lists, never errors.
type ContextProvider interface {
	Gather(ctx context.Context, query string) domain.ContextPack
}

// Enricher produces Korean marketing copy from facts and web context,
// falling back to deterministic heuristics when generation is unavailable.
type Enricher interface {
	Enrich(ctx context.Context, fact domain.SourceFact, pack domain.ContextPack) domain.Enrichment
}

// PublishRequest carries everything a marketplace submission needs.
type PublishRequest struct {
	SourceURL      string
	Title          string
	TargetPriceKRW int
	Risk           string
	ProductPayload *payload.Value
}

// PublishResponse reports the outcome of one submission attempt.
type PublishResponse struct {
	Success         bool
	MarketProductID string
	Message         string
}

// MarketPublisher submits a finished payload to the target marketplace
// (or a mock of it).
type MarketPublisher interface {
	Publish(ctx context.Context, req PublishRequest) PublishResponse
}

// RunRepository persists run snapshots for audit/history.
type RunRepository interface {
	SaveRun(ctx context.Context, record domain.RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
