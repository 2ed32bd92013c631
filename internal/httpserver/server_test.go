package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBridge/internal/config"
	"MarketBridge/internal/domain"
	"MarketBridge/internal/payload"
	"MarketBridge/internal/ports"
	"MarketBridge/internal/pricing"
	"MarketBridge/internal/usecase"
)

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, sourceURL string) domain.SourceFact {
	return domain.SourceFact{
		Site:                   domain.SiteAmazonJP,
		SourceURL:              sourceURL,
		Title:                  "ワイヤレスイヤホン X200",
		SourcePriceJPY:         5980,
		RepresentativeImageURL: "https://cdn.example.com/main.jpg",
		Specs:                  map[string]string{},
		Note:                   "JSON-LD 추출",
	}
}

type stubContext struct{}

func (stubContext) Gather(ctx context.Context, query string) domain.ContextPack {
	return domain.ContextPack{}
}

type stubEnricher struct{}

func (stubEnricher) Enrich(ctx context.Context, fact domain.SourceFact, pack domain.ContextPack) domain.Enrichment {
	return domain.Enrichment{TitleKO: "무선 이어폰 X200"}
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, req ports.PublishRequest) ports.PublishResponse {
	return ports.PublishResponse{Success: true, MarketProductID: "naver_mock_abc123def456", Message: "네이버 마켓 mock publish 성공"}
}

func testServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Config{
		App:    config.AppConfig{Env: "dev", AutoPublishOnRunLink: true},
		Server: config.ServerConfig{Addr: ":0"},
		Pricing: config.PricingConfig{
			MarkupRate:      0.35,
			MinMarginRate:   0.10,
			FxRate:          9.2,
			ShippingCostKRW: 9000,
			MarketFeeRate:   0.13,
		},
		Naver: config.NaverConfig{
			Payload: config.PayloadConfig{
				LeafCategoryID:         50000000,
				RepresentativeImageURL: "https://img.example.com/rep.jpg",
				OriginAreaCode:         "02",
				Importer:               "구매대행",
				AfterServiceGuide:      "채팅문의",
				AfterServiceTel:        "010-0000-0000",
				DetailContentHTML:      "<p>상세 설명 준비 중</p>",
				DefaultNoticeType:      "FASHION_ITEMS",
				TemplateMode:           "auto",
			},
		},
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Cfg:        cfg,
		Extractor:  stubExtractor{},
		Context:    stubContext{},
		Enricher:   stubEnricher{},
		Publisher:  stubPublisher{},
		Builder:    payload.NewBuilder(cfg.Naver.Payload),
		Calculator: pricing.NewCalculator(cfg.Pricing),
	})
	return New(cfg, pipeline, nil)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dev", body["env"])
}

func TestRunLink(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/run-link", `{"source_url":"https://www.amazon.co.jp/dp/B000TEST"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var result domain.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "무선 이어폰 X200", result.Extraction.Title)
	assert.Equal(t, domain.ApprovalApproved, result.ApprovalStatus)
	assert.Equal(t, domain.PublishStatusPublished, result.PublishStatus)
}

func TestRunLinkMissingURL(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/run-link", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func TestRunLinkBatch(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/run-link-batch",
		`{"source_urls":["https://www.amazon.co.jp/dp/A","  "],"auto_publish":false}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Results []domain.RunResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, domain.PublishStatusDraft, body.Results[0].PublishStatus)
}

func TestBuildPayload(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/naver/build-payload",
		`{"title":"무선 이어폰","sale_price_krw":24570,"overrides":{"originProduct":{"salePrice":25000}}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp BuildPayloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "DIGITAL_CONTENTS", resp.TemplateUsed)
	assert.NotNil(t, resp.ValidationErrors)
	assert.Empty(t, resp.ValidationErrors)

	price, ok := resp.Payload.Path("originProduct.salePrice")
	require.True(t, ok)
	assert.Equal(t, float64(25000), price.Num())
}

func TestBuildPayloadMissingTitle(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/naver/build-payload", `{"sale_price_krw":1000}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishRaw(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/naver/publish-raw",
		`{"product_payload":{"originProduct":{"name":"무선 이어폰"}}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var result domain.PublishResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Attempted)
	assert.True(t, result.Published)
	assert.Equal(t, "naver_mock_abc123def456", result.MarketProductID)
}

func TestPublishRawMissingPayload(t *testing.T) {
	s := testServer(t)

	w := doJSON(t, s, http.MethodPost, "/naver/publish-raw", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
