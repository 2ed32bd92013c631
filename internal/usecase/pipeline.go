package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strings"
	"time"

	"MarketBridge/internal/config"
	"MarketBridge/internal/domain"
	"MarketBridge/internal/payload"
	"MarketBridge/internal/policy"
	"MarketBridge/internal/ports"
	"MarketBridge/internal/pricing"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Cfg        config.Config
	Extractor  ports.FactExtractor
	Context    ports.ContextProvider
	Enricher   ports.Enricher
	Publisher  ports.MarketPublisher
	Builder    *payload.Builder
	Calculator *pricing.Calculator
	Repository ports.RunRepository
	Logger     *slog.Logger
}

// Pipeline implements the link-to-listing workflow: extract facts, gather
// context, enrich, price, gate, and conditionally publish. A run always
// produces a RunResult; degradation is reported through statuses and notes.
type Pipeline struct {
	cfg        config.Config
	extractor  ports.FactExtractor
	context    ports.ContextProvider
	enricher   ports.Enricher
	publisher  ports.MarketPublisher
	builder    *payload.Builder
	calculator *pricing.Calculator
	repository ports.RunRepository
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		cfg:        deps.Cfg,
		extractor:  deps.Extractor,
		context:    deps.Context,
		enricher:   deps.Enricher,
		publisher:  deps.Publisher,
		builder:    deps.Builder,
		calculator: deps.Calculator,
		repository: deps.Repository,
		logger:     deps.Logger,
	}
}

// Run executes the full pipeline for a single listing URL. autoPublish nil
// means the configured default decides.
func (p *Pipeline) Run(ctx context.Context, sourceURL string, autoPublish *bool) domain.RunResult {
	fact := p.extractor.Extract(ctx, sourceURL)

	var pack domain.ContextPack
	var enriched domain.Enrichment
	if !fact.Fallback {
		pack = p.context.Gather(ctx, fact.Title)
		enriched = p.enricher.Enrich(ctx, fact, pack)
	}

	extraction := mergeExtraction(fact, enriched, pack)

	shouldPublish := p.cfg.App.AutoPublishOnRunLink
	if autoPublish != nil {
		shouldPublish = *autoPublish
	}

	priced := p.calculator.Calculate(fact.SourcePriceJPY)
	decision := policy.Evaluate(extraction.Title)
	policyResult := domain.PolicyResult{
		Risk:    decision.Risk,
		Blocked: decision.Blocked,
		Reasons: decision.Reasons,
	}

	approval := p.decideApproval(decision.Blocked, priced.EstimatedMarginRate)

	result := domain.RunResult{
		Extraction:     extraction,
		Pricing:        priced,
		Policy:         policyResult,
		ApprovalStatus: approval,
		PublishStatus:  domain.PublishStatusDraft,
		PublishResult: domain.PublishResult{
			Attempted: false,
			Published: false,
			Message:   "승인 전 또는 자동발행 비활성",
		},
		Notes: []string{fact.Note},
		Debug: p.debugInfo(shouldPublish),
	}

	if approval == domain.ApprovalApproved && shouldPublish {
		p.publishApproved(ctx, extraction, priced, policyResult, &result)
	}

	p.record(ctx, result)
	return result
}

// RunBatch runs each cleaned URL independently and sequentially; one URL's
// outcome never affects another's.
func (p *Pipeline) RunBatch(ctx context.Context, sourceURLs []string, autoPublish *bool) []domain.RunResult {
	results := make([]domain.RunResult, 0, len(sourceURLs))
	for _, raw := range sourceURLs {
		cleaned := strings.TrimSpace(raw)
		if cleaned == "" {
			continue
		}
		results = append(results, p.Run(ctx, cleaned, autoPublish))
	}
	return results
}

// PublishRaw pushes a caller-supplied payload straight to the marketplace.
func (p *Pipeline) PublishRaw(ctx context.Context, product *payload.Value) domain.PublishResult {
	response := p.publisher.Publish(ctx, ports.PublishRequest{
		SourceURL:      "manual_raw_payload",
		Title:          "manual_raw_payload",
		TargetPriceKRW: 0,
		Risk:           "manual",
		ProductPayload: product,
	})
	return domain.PublishResult{
		Attempted:       true,
		Published:       response.Success,
		MarketProductID: response.MarketProductID,
		Message:         response.Message,
	}
}

// BuildPayload assembles and validates a marketplace payload without
// publishing.
func (p *Pipeline) BuildPayload(title string, salePriceKRW int, overrides *payload.Value, templateHint string) (*payload.Value, []string, string) {
	return p.builder.Build(title, salePriceKRW, overrides, templateHint)
}

func (p *Pipeline) publishApproved(ctx context.Context, extraction domain.Extraction, priced domain.PricingResult, policyResult domain.PolicyResult, result *domain.RunResult) {
	overrides := payload.Object()
	originOverride := payload.Object()
	hasOverride := false

	if extraction.RepresentativeImageURL != "" {
		originOverride.Set("images", payload.Array(
			payload.Object().Set("url", payload.String(extraction.RepresentativeImageURL)),
		))
		hasOverride = true
	}
	if detail := buildDetailContentHTML(extraction); detail != "" {
		originOverride.Set("detailContent", payload.String(detail))
		hasOverride = true
	}
	if hasOverride {
		overrides.Set("originProduct", originOverride)
	} else {
		overrides = nil
	}

	product, payloadErrors, templateUsed := p.builder.Build(extraction.Title, priced.TargetPriceKRW, overrides, "")
	result.Debug["template_used"] = templateUsed

	if len(payloadErrors) > 0 {
		result.PublishStatus = domain.PublishStatusError
		result.PublishResult = domain.PublishResult{
			Attempted: true,
			Published: false,
			Message:   "네이버 payload 필수값 누락: " + strings.Join(payloadErrors, "; "),
		}
		return
	}

	response := p.publisher.Publish(ctx, ports.PublishRequest{
		SourceURL:      extraction.SourceURL,
		Title:          extraction.Title,
		TargetPriceKRW: priced.TargetPriceKRW,
		Risk:           policyResult.Risk,
		ProductPayload: product,
	})

	result.PublishResult = domain.PublishResult{
		Attempted:       true,
		Published:       response.Success,
		MarketProductID: response.MarketProductID,
		Message:         response.Message,
	}
	if response.Success {
		result.PublishStatus = domain.PublishStatusPublished
	} else {
		result.PublishStatus = domain.PublishStatusError
	}
}

func (p *Pipeline) decideApproval(blocked bool, marginRate float64) string {
	if blocked {
		return domain.ApprovalRejected
	}
	if marginRate < p.cfg.Pricing.MinMarginRate {
		return domain.ApprovalRejected
	}
	return domain.ApprovalApproved
}

func (p *Pipeline) debugInfo(shouldPublish bool) map[string]any {
	return map[string]any{
		"min_margin_rate":    p.cfg.Pricing.MinMarginRate,
		"auto_publish":       shouldPublish,
		"naver_use_real_api": p.cfg.Naver.UseRealAPI,
		"llm_enabled":        p.cfg.LLM.Enabled,
		"llm_model":          p.cfg.LLM.Model,
	}
}

func (p *Pipeline) record(ctx context.Context, result domain.RunResult) {
	if p.repository == nil {
		return
	}
	err := p.repository.SaveRun(ctx, domain.RunRecord{
		SourceURL:       result.Extraction.SourceURL,
		Title:           result.Extraction.Title,
		ApprovalStatus:  result.ApprovalStatus,
		PublishStatus:   result.PublishStatus,
		MarketProductID: result.PublishResult.MarketProductID,
		MarginRate:      result.Pricing.EstimatedMarginRate,
		CreatedAt:       time.Now(),
	})
	if err != nil && p.logger != nil {
		p.logger.Warn("run history save failed", "url", result.Extraction.SourceURL, "error", err)
	}
}

// mergeExtraction layers localized copy over raw facts: localized fields
// win where present, raw facts remain the fallback.
func mergeExtraction(fact domain.SourceFact, enriched domain.Enrichment, pack domain.ContextPack) domain.Extraction {
	extraction := domain.Extraction{
		SourceSite:             fact.Site,
		SourceURL:              fact.SourceURL,
		Title:                  fact.Title,
		SourcePriceJPY:         fact.SourcePriceJPY,
		RepresentativeImageURL: fact.RepresentativeImageURL,
		ImageURLs:              emptyIfNil(fact.ImageURLs),
		SourceDescription:      fact.Description,
		KeyFeatures:            emptyIfNil(fact.KeyFeatures),
		Specs:                  fact.Specs,
		RawTextSnippet:         fact.RawTextSnippet,
		SummaryKO:              enriched.SummaryKO,
		ProductJudgementKO:     enriched.ProductJudgementKO,
		SellingPointsKO:        emptyIfNil(enriched.SellingPointsKO),
		DetailOutlineKO:        emptyIfNil(enriched.DetailOutlineKO),
		DetailSectionsKO:       emptyIfNil(enriched.DetailSectionsKO),
		SourceLinks:            emptyIfNil(pack.Links),
	}
	if extraction.Specs == nil {
		extraction.Specs = map[string]string{}
	}

	if enriched.TitleKO != "" {
		extraction.Title = enriched.TitleKO
	}
	if enriched.TranslatedDescriptionKO != "" {
		extraction.SourceDescription = enriched.TranslatedDescriptionKO
	}
	if len(enriched.TranslatedKeyFeaturesKO) > 0 {
		extraction.KeyFeatures = enriched.TranslatedKeyFeaturesKO
	}
	if len(enriched.TranslatedSpecsKO) > 0 {
		extraction.Specs = enriched.TranslatedSpecsKO
	}
	if enriched.TranslatedSnippetKO != "" {
		extraction.RawTextSnippet = enriched.TranslatedSnippetKO
	}
	return extraction
}

// buildDetailContentHTML assembles the detail page from localized copy and
// raw facts; every value is HTML-escaped.
func buildDetailContentHTML(extraction domain.Extraction) string {
	var parts []string

	if extraction.SummaryKO != "" {
		parts = append(parts, fmt.Sprintf("<h2>상품 요약</h2><p>%s</p>", escape(extraction.SummaryKO)))
	}
	if len(extraction.SellingPointsKO) > 0 {
		parts = append(parts, "<h2>핵심 포인트</h2><ul>"+listItems(extraction.SellingPointsKO, 8)+"</ul>")
	}
	if len(extraction.KeyFeatures) > 0 {
		parts = append(parts, "<h2>원문 기반 특징</h2><ul>"+listItems(extraction.KeyFeatures, 12)+"</ul>")
	}
	if len(extraction.Specs) > 0 {
		keys := make([]string, 0, len(extraction.Specs))
		for k := range extraction.Specs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 20 {
			keys = keys[:20]
		}
		var rows strings.Builder
		for _, k := range keys {
			rows.WriteString(fmt.Sprintf("<tr><th>%s</th><td>%s</td></tr>", escape(k), escape(extraction.Specs[k])))
		}
		parts = append(parts, "<h2>스펙</h2><table>"+rows.String()+"</table>")
	}
	if len(extraction.DetailOutlineKO) > 0 {
		parts = append(parts, "<h2>상세 구성</h2><ol>"+listItems(extraction.DetailOutlineKO, 10)+"</ol>")
	}
	if extraction.RawTextSnippet != "" {
		snippet := extraction.RawTextSnippet
		if runes := []rune(snippet); len(runes) > 1000 {
			snippet = string(runes[:1000])
		}
		parts = append(parts, "<h2>원문 발췌</h2><p>"+escape(snippet)+"</p>")
	}

	return strings.Join(parts, "")
}

func listItems(values []string, max int) string {
	if len(values) > max {
		values = values[:max]
	}
	var sb strings.Builder
	for _, v := range values {
		sb.WriteString("<li>")
		sb.WriteString(escape(v))
		sb.WriteString("</li>")
	}
	return sb.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
