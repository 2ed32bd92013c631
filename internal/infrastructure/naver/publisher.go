package naver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"MarketBridge/internal/config"
	"MarketBridge/internal/ports"
)

// productIDKeys are checked in priority order against the creation
// response; the key name varies across API versions.
var productIDKeys = []string{"productNo", "id", "originProductNo"}

// Publisher submits listings to the Naver marketplace, or fabricates a
// deterministic mock response when real API use is disabled.
type Publisher struct {
	cfg    config.NaverConfig
	client *Client
	logger *slog.Logger
}

var _ ports.MarketPublisher = (*Publisher)(nil)

// NewPublisher wires the Commerce client from configuration.
func NewPublisher(cfg config.NaverConfig, logger *slog.Logger) *Publisher {
	return &Publisher{cfg: cfg, client: NewClient(cfg), logger: logger}
}

// Publish never panics or errors out; failures come back in the response.
func (p *Publisher) Publish(ctx context.Context, req ports.PublishRequest) ports.PublishResponse {
	if p.cfg.UseRealAPI {
		return p.publishReal(ctx, req)
	}
	return p.publishMock(req)
}

func (p *Publisher) publishMock(req ports.PublishRequest) ports.PublishResponse {
	key := fmt.Sprintf("%s|%s|%d", req.SourceURL, req.Title, req.TargetPriceKRW)
	sum := sha1.Sum([]byte(key))
	pid := hex.EncodeToString(sum[:])[:12]
	return ports.PublishResponse{
		Success:         true,
		MarketProductID: "naver_mock_" + pid,
		Message:         "네이버 마켓 mock publish 성공",
	}
}

func (p *Publisher) publishReal(ctx context.Context, req ports.PublishRequest) ports.PublishResponse {
	if req.ProductPayload == nil {
		return ports.PublishResponse{
			Success: false,
			Message: "실연동 모드는 product_payload가 필요합니다.",
		}
	}

	created, err := p.client.CreateProduct(ctx, req.ProductPayload)
	if err != nil {
		var authErr *AuthError
		var apiErr *APIError
		if errors.As(err, &authErr) || errors.As(err, &apiErr) {
			p.warn("publish failed", "url", req.SourceURL, "error", err)
			return ports.PublishResponse{Success: false, Message: err.Error()}
		}
		return ports.PublishResponse{Success: false, Message: err.Error()}
	}

	return ports.PublishResponse{
		Success:         true,
		MarketProductID: extractProductID(created),
		Message:         "네이버 상품 등록 성공",
	}
}

func extractProductID(created map[string]any) string {
	for _, key := range productIDKeys {
		if v, ok := created[key]; ok && v != nil {
			switch typed := v.(type) {
			case string:
				return typed
			case float64:
				return trimFloat(typed)
			default:
				return fmt.Sprintf("%v", typed)
			}
		}
	}
	return ""
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", f)
}

func (p *Publisher) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
