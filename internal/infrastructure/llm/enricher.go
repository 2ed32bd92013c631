package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"MarketBridge/internal/config"
	"MarketBridge/internal/domain"
	"MarketBridge/internal/ports"
)

const systemPrompt = "You are an ecommerce copy assistant. Return ONLY valid JSON. " +
	"Use factual input only, no hallucination."

var constraints = []string{
	"No medical/effect exaggeration",
	"Do not invent unavailable specs",
	"Korean concise and ecommerce-ready",
	"Use web_context only as auxiliary evidence, prioritize extracted source text",
	"Do NOT mention rating, review score, delivery quality, age recommendation unless explicitly present in facts_blob",
	"If uncertain, omit the claim instead of guessing",
	"Write in clean Korean for ecommerce detail page, avoid awkward literal translation",
	"detail_sections_ko should be practical section-style copy for detail page blocks",
	"When web_context suggests likely product identity or brand/IP story, include cautious judgement in product_judgement_ko",
}

var braceObjectExpr = regexp.MustCompile(`\{[\s\S]*\}`)

// Enricher calls an OpenAI-compatible chat completion API to produce Korean
// marketing copy, and degrades to a deterministic heuristic pack whenever
// the service is disabled, unreachable, or returns unusable output.
type Enricher struct {
	cfg        config.LLMConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Enricher = (*Enricher)(nil)

// NewEnricher builds a client from configuration.
func NewEnricher(cfg config.LLMConfig, logger *slog.Logger) *Enricher {
	return &Enricher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 35 * time.Second},
		logger:     logger,
	}
}

// Enrich never fails: any service problem yields the heuristic pack.
func (e *Enricher) Enrich(ctx context.Context, fact domain.SourceFact, pack domain.ContextPack) domain.Enrichment {
	if !e.cfg.Enabled || e.cfg.APIKey == "" {
		return HeuristicPack(fact)
	}

	factsBlob := buildFactsBlob(fact)

	content, err := e.complete(ctx, fact, pack, factsBlob)
	if err != nil {
		e.debug("enrichment fell back", "url", fact.SourceURL, "error", err)
		return HeuristicPack(fact)
	}

	parsed := extractJSONObject(content)
	if parsed == nil {
		e.debug("enrichment fell back", "url", fact.SourceURL, "error", "no JSON object in response")
		return HeuristicPack(fact)
	}

	out := domain.Enrichment{
		TitleKO:                 firstNonEmpty(asString(parsed["title_ko"]), fact.Title),
		SummaryKO:               asString(parsed["summary_ko"]),
		ProductJudgementKO:      asString(parsed["product_judgement_ko"]),
		SellingPointsKO:         asStringList(parsed["selling_points_ko"]),
		DetailOutlineKO:         asStringList(parsed["detail_outline_ko"]),
		DetailSectionsKO:        asStringList(parsed["detail_sections_ko"]),
		TranslatedDescriptionKO: asString(parsed["translated_source_description_ko"]),
		TranslatedKeyFeaturesKO: asStringList(parsed["translated_key_features_ko"]),
		TranslatedSpecsKO:       asStringMap(parsed["translated_specs_ko"]),
		TranslatedSnippetKO:     asString(parsed["translated_raw_text_snippet_ko"]),
	}
	return postprocess(out, factsBlob)
}

func (e *Enricher) complete(ctx context.Context, fact domain.SourceFact, pack domain.ContextPack, factsBlob string) (string, error) {
	prompt := map[string]any{
		"source_url":         fact.SourceURL,
		"title":              fact.Title,
		"source_description": fact.Description,
		"key_features":       capList(fact.KeyFeatures, 20),
		"specs":              fact.Specs,
		"raw_text_snippet":   capRunes(fact.RawTextSnippet, 2500),
		"web_context":        capList(pack.Snippets, 12),
		"web_source_links":   capList(pack.Links, 10),
		"facts_blob":         capRunes(factsBlob, 4000),
		"task": map[string]any{
			"goal": "Korean open-market detail page materials with product judgement",
			"output_schema": map[string]any{
				"title_ko":                         "string",
				"product_judgement_ko":             "string",
				"summary_ko":                       "string",
				"selling_points_ko":                []string{"string"},
				"detail_outline_ko":                []string{"string"},
				"detail_sections_ko":               []string{"string"},
				"translated_source_description_ko": "string",
				"translated_key_features_ko":       []string{"string"},
				"translated_specs_ko":              map[string]string{"key": "value"},
				"translated_raw_text_snippet_ko":   "string",
			},
			"constraints": constraints,
		},
	}

	userContent, err := json.Marshal(prompt)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model":       e.cfg.Model,
		"temperature": 0.2,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": string(userContent)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// HeuristicPack derives deterministic fallback copy purely from extracted
// facts. Identical input yields identical output.
func HeuristicPack(fact domain.SourceFact) domain.Enrichment {
	return domain.Enrichment{
		TitleKO:            fact.Title,
		SummaryKO:          capRunes(fact.Description, 300),
		ProductJudgementKO: "원문 기준으로 파악한 상품군입니다. 세부 사양은 원문/스펙을 우선 확인하세요.",
		SellingPointsKO:    capList(fact.KeyFeatures, 5),
		DetailOutlineKO: []string{
			"상품 핵심 특징",
			"상세 스펙",
			"사용/관리 방법",
			"구매 전 확인사항",
		},
		DetailSectionsKO: []string{
			"이 상품은 어떤 문제를 해결하는지",
			"핵심 장점과 차별점",
			"구매 전 체크해야 할 스펙",
			"추천 사용 시나리오",
			"주의사항 및 한계",
		},
		TranslatedDescriptionKO: capRunes(fact.Description, 600),
		TranslatedKeyFeaturesKO: capList(fact.KeyFeatures, 20),
		TranslatedSpecsKO:       map[string]string{},
		TranslatedSnippetKO:     "",
	}
}

func buildFactsBlob(fact domain.SourceFact) string {
	var parts []string
	if fact.Description != "" {
		parts = append(parts, "[source_description] "+fact.Description)
	}
	if len(fact.KeyFeatures) > 0 {
		parts = append(parts, "[key_features] "+strings.Join(capList(fact.KeyFeatures, 20), " | "))
	}
	if len(fact.Specs) > 0 {
		kv := make([]string, 0, len(fact.Specs))
		for _, k := range sortedSpecKeys(fact.Specs) {
			kv = append(kv, k+":"+fact.Specs[k])
		}
		if len(kv) > 30 {
			kv = kv[:30]
		}
		parts = append(parts, "[specs] "+strings.Join(kv, " | "))
	}
	if fact.RawTextSnippet != "" {
		parts = append(parts, "[raw_text_snippet] "+capRunes(fact.RawTextSnippet, 2500))
	}
	return strings.Join(parts, "\n")
}

// extractJSONObject parses text as JSON, salvaging the first brace-delimited
// object when the service wrapped it in prose.
func extractJSONObject(text string) map[string]any {
	text = strings.TrimSpace(text)

	var direct map[string]any
	if err := json.Unmarshal([]byte(text), &direct); err == nil {
		return direct
	}

	match := braceObjectExpr.FindString(text)
	if match == "" {
		return nil
	}
	var salvaged map[string]any
	if err := json.Unmarshal([]byte(match), &salvaged); err != nil {
		return nil
	}
	return salvaged
}

func asString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", typed))
	default:
		return ""
	}
}

func asStringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	var out []string
	for _, item := range list {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func asStringMap(v any) map[string]string {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := map[string]string{}
	for k, item := range m {
		key := strings.TrimSpace(k)
		value := asString(item)
		if key != "" && value != "" {
			out[key] = value
		}
	}
	return out
}

func capList(values []string, max int) []string {
	if len(values) > max {
		return values[:max]
	}
	return values
}

func capRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sortedSpecKeys(specs map[string]string) []string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Enricher) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
