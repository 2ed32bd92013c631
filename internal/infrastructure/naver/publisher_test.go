package naver

import (
	"context"
	"strings"
	"testing"

	"MarketBridge/internal/config"
	"MarketBridge/internal/ports"
)

func TestPublishMockDeterministic(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.NaverConfig{UseRealAPI: false}, nil)
	req := ports.PublishRequest{
		SourceURL:      "https://www.amazon.co.jp/dp/B000TEST",
		Title:          "무선 이어폰 X200",
		TargetPriceKRW: 24570,
	}

	first := p.Publish(context.Background(), req)
	second := p.Publish(context.Background(), req)

	if !first.Success {
		t.Fatalf("mock publish failed: %+v", first)
	}
	if first.MarketProductID != second.MarketProductID {
		t.Errorf("mock id not deterministic: %q vs %q", first.MarketProductID, second.MarketProductID)
	}
	if !strings.HasPrefix(first.MarketProductID, "naver_mock_") {
		t.Errorf("id prefix: %q", first.MarketProductID)
	}
	if len(first.MarketProductID) != len("naver_mock_")+12 {
		t.Errorf("id length: %q", first.MarketProductID)
	}
	if first.Message != "네이버 마켓 mock publish 성공" {
		t.Errorf("message: %q", first.Message)
	}
}

func TestPublishMockVariesWithInput(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.NaverConfig{}, nil)
	base := ports.PublishRequest{SourceURL: "https://example.com/a", Title: "A", TargetPriceKRW: 1000}
	other := base
	other.TargetPriceKRW = 2000

	if p.Publish(context.Background(), base).MarketProductID == p.Publish(context.Background(), other).MarketProductID {
		t.Error("different inputs should yield different mock ids")
	}
}

func TestPublishRealRequiresPayload(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.NaverConfig{UseRealAPI: true}, nil)

	resp := p.Publish(context.Background(), ports.PublishRequest{Title: "무선 이어폰"})
	if resp.Success {
		t.Fatal("expected failure without payload")
	}
	if resp.Message != "실연동 모드는 product_payload가 필요합니다." {
		t.Errorf("message: %q", resp.Message)
	}
}

func TestPublishRealSuccess(t *testing.T) {
	api := newStubAPI(t)
	cfg := testNaverConfig(api.srv.URL)
	p := NewPublisher(cfg, nil)

	resp := p.Publish(context.Background(), ports.PublishRequest{
		SourceURL:      "https://www.amazon.co.jp/dp/B000TEST",
		Title:          "무선 이어폰",
		TargetPriceKRW: 24570,
		ProductPayload: testProduct(),
	})

	if !resp.Success {
		t.Fatalf("publish failed: %+v", resp)
	}
	if resp.MarketProductID != "8812345" {
		t.Errorf("product id: %q", resp.MarketProductID)
	}
	if resp.Message != "네이버 상품 등록 성공" {
		t.Errorf("message: %q", resp.Message)
	}
}

func TestPublishRealAuthFailure(t *testing.T) {
	t.Parallel()

	p := NewPublisher(config.NaverConfig{UseRealAPI: true, TokenType: "SELF"}, nil)

	resp := p.Publish(context.Background(), ports.PublishRequest{ProductPayload: testProduct()})
	if resp.Success {
		t.Fatal("expected auth failure")
	}
	if !strings.Contains(resp.Message, "NAVER_CLIENT_ID") {
		t.Errorf("message: %q", resp.Message)
	}
}

func TestExtractProductID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   map[string]any
		want string
	}{
		{map[string]any{"productNo": float64(123)}, "123"},
		{map[string]any{"id": "abc-1"}, "abc-1"},
		{map[string]any{"originProductNo": float64(9.5)}, "9.5"},
		{map[string]any{"productNo": "p-1", "id": "ignored"}, "p-1"},
		{map[string]any{}, ""},
	}
	for _, tc := range cases {
		if got := extractProductID(tc.in); got != tc.want {
			t.Errorf("extractProductID(%v): got %q want %q", tc.in, got, tc.want)
		}
	}
}
