package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MarketBridge/internal/domain"
	"MarketBridge/internal/ports"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

	maxImages        = 15
	maxFeatures      = 20
	maxSpecs         = 20
	snippetSoftLimit = 3500
	snippetHardLimit = 4000
	maxProductDepth  = 12
)

var navLabelExpr = regexp.MustCompile(`(?i)^(home|login|cart|menu)$`)

// Extractor fetches a listing page and normalizes it into a SourceFact.
// It never returns an error: any failure yields site-specific fallback facts.
type Extractor struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.FactExtractor = (*Extractor)(nil)

// NewExtractor wires an HTTP client; the default follows redirects with a
// 20s timeout.
func NewExtractor(client *http.Client, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Extractor{client: client, logger: logger}
}

// Extract fetches and parses the listing. On any failure it returns
// placeholder facts for the detected site with an explanatory note.
func (e *Extractor) Extract(ctx context.Context, sourceURL string) domain.SourceFact {
	site := DetectSite(sourceURL)

	html, err := e.fetchHTML(ctx, sourceURL)
	if err != nil {
		e.debug("extraction fell back", "url", sourceURL, "error", err)
		return fallbackFact(site, sourceURL, err)
	}

	fact, err := parseListing(sourceURL, html)
	if err != nil {
		e.debug("extraction fell back", "url", sourceURL, "error", err)
		return fallbackFact(site, sourceURL, err)
	}

	fact.Site = site
	if fact.Title == "" {
		fact.Title = fallbackTitle(site)
	}
	if fact.SourcePriceJPY == 0 {
		fact.SourcePriceJPY = fallbackPrice(site)
	}
	return fact
}

// DetectSite matches the URL host against the known Japanese marketplaces.
func DetectSite(sourceURL string) domain.SourceSite {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return domain.SiteOther
	}
	host := strings.ToLower(parsed.Host)
	switch {
	case strings.Contains(host, "amazon.co.jp"):
		return domain.SiteAmazonJP
	case strings.Contains(host, "rakuten.co.jp"):
		return domain.SiteRakuten
	case strings.Contains(host, "shopping.yahoo.co.jp"):
		return domain.SiteYahooJP
	default:
		return domain.SiteOther
	}
}

func (e *Extractor) fetchHTML(ctx context.Context, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

func parseListing(sourceURL, html string) (domain.SourceFact, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.SourceFact{}, fmt.Errorf("parse document: %w", err)
	}

	product := findJSONLDProduct(doc)
	metaTitle := findMeta(doc, "og:title")
	metaDesc := firstNonEmpty(findMeta(doc, "og:description"), findMeta(doc, "description"))
	metaPrice := findMeta(doc, "product:price:amount")

	var title string
	var priceJPY int
	var jsonldImages []string
	if product != nil {
		title = product.Name
		priceJPY = parsePrice(product.Price)
		for _, u := range product.Images {
			if u != "" {
				jsonldImages = append(jsonldImages, absoluteURL(sourceURL, u))
			}
		}
	}

	if title == "" {
		title = firstNonEmpty(
			strings.TrimSpace(doc.Find("h1").First().Text()),
			metaTitle,
			strings.TrimSpace(collapseSpaces(doc.Find("title").First().Text())),
		)
	}
	if priceJPY == 0 {
		priceJPY = parsePrice(metaPrice)
	}

	var images []string
	if og := findMeta(doc, "og:image"); og != "" {
		images = append(images, absoluteURL(sourceURL, og))
	}
	images = append(images, jsonldImages...)
	images = append(images, collectImageURLs(sourceURL, doc)...)
	images = uniqueKeepOrder(images)
	if len(images) > maxImages {
		images = images[:maxImages]
	}

	note := "meta/title 추출"
	if product != nil {
		note = "JSON-LD 추출"
	}

	var representative string
	if len(images) > 0 {
		representative = images[0]
	}

	return domain.SourceFact{
		SourceURL:              sourceURL,
		Title:                  title,
		SourcePriceJPY:         priceJPY,
		RepresentativeImageURL: representative,
		ImageURLs:              images,
		Description:            metaDesc,
		KeyFeatures:            collectFeatures(doc),
		Specs:                  collectSpecs(doc),
		RawTextSnippet:         collectSnippet(doc),
		Note:                   note,
	}, nil
}

// jsonldProduct holds the fields lifted out of structured product markup.
type jsonldProduct struct {
	Name   string
	Price  string
	Images []string
}

func findJSONLDProduct(doc *goquery.Document) *jsonldProduct {
	var found *jsonldProduct
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		parsed := tryJSONLoad(raw)
		if parsed == nil {
			return true
		}
		node := findProductNode(parsed, 0)
		if node == nil {
			return true
		}
		found = liftProduct(node)
		return false
	})
	return found
}

func tryJSONLoad(raw string) any {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		return parsed
	}
	fixed := strings.NewReplacer("\n", " ", "\t", " ").Replace(raw)
	if err := json.Unmarshal([]byte(fixed), &parsed); err == nil {
		return parsed
	}
	return nil
}

// findProductNode walks nested arrays/objects/@graph wrappers looking for a
// node whose @type declares Product. Depth is bounded against pathological
// documents.
func findProductNode(obj any, depth int) map[string]any {
	if depth > maxProductDepth {
		return nil
	}

	switch node := obj.(type) {
	case []any:
		for _, item := range node {
			if found := findProductNode(item, depth+1); found != nil {
				return found
			}
		}
		return nil
	case map[string]any:
		if isProductType(node["@type"]) {
			return node
		}
		if graph, ok := node["@graph"]; ok {
			if found := findProductNode(graph, depth+1); found != nil {
				return found
			}
		}
		for _, v := range node {
			if found := findProductNode(v, depth+1); found != nil {
				return found
			}
		}
		return nil
	default:
		return nil
	}
}

func isProductType(t any) bool {
	switch typed := t.(type) {
	case string:
		return typed == "Product"
	case []any:
		for _, item := range typed {
			if s, ok := item.(string); ok && s == "Product" {
				return true
			}
		}
	}
	return false
}

func liftProduct(node map[string]any) *jsonldProduct {
	out := &jsonldProduct{}
	if name, ok := node["name"].(string); ok {
		out.Name = strings.TrimSpace(name)
	}

	switch offers := node["offers"].(type) {
	case []any:
		if len(offers) > 0 {
			if first, ok := offers[0].(map[string]any); ok {
				out.Price = offerPrice(first)
			}
		}
	case map[string]any:
		out.Price = offerPrice(offers)
	}

	switch images := node["image"].(type) {
	case string:
		out.Images = []string{images}
	case []any:
		for _, item := range images {
			if s, ok := item.(string); ok {
				out.Images = append(out.Images, s)
			}
		}
	}
	return out
}

func offerPrice(offer map[string]any) string {
	for _, key := range []string{"price", "lowPrice"} {
		switch v := offer[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func findMeta(doc *goquery.Document, prop string) string {
	selector := fmt.Sprintf(`meta[property="%s"], meta[name="%s"]`, prop, prop)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

func collectImageURLs(sourceURL string, doc *goquery.Document) []string {
	var urls []string
	doc.Find("img").Each(func(i int, img *goquery.Selection) {
		src := firstAttr(img, "src", "data-src", "data-original")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:image") {
			return
		}
		urls = append(urls, absoluteURL(sourceURL, src))
	})
	return urls
}

func collectFeatures(doc *goquery.Document) []string {
	var features []string
	doc.Find("li").EachWithBreak(func(i int, li *goquery.Selection) bool {
		text := normalizeText(li.Text())
		if len([]rune(text)) < 8 || len([]rune(text)) > 160 {
			return true
		}
		if navLabelExpr.MatchString(text) {
			return true
		}
		features = append(features, text)
		return len(features) < maxFeatures
	})
	return uniqueKeepOrder(features)
}

func collectSpecs(doc *goquery.Document) map[string]string {
	specs := map[string]string{}

	doc.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		th := tr.Find("th").First()
		td := tr.Find("td").First()
		if th.Length() == 0 || td.Length() == 0 {
			return true
		}
		addSpec(specs, normalizeText(th.Text()), normalizeText(td.Text()))
		return len(specs) < maxSpecs
	})

	if len(specs) < maxSpecs {
		doc.Find("dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
			dd := dt.NextFiltered("dd")
			if dd.Length() == 0 {
				return true
			}
			key := normalizeText(dt.Text())
			if _, exists := specs[key]; !exists {
				addSpec(specs, key, normalizeText(dd.Text()))
			}
			return len(specs) < maxSpecs
		})
	}

	return specs
}

func addSpec(specs map[string]string, key, value string) {
	if key == "" || value == "" {
		return
	}
	if len([]rune(key)) > 80 || len([]rune(value)) > 300 {
		return
	}
	specs[key] = value
}

func collectSnippet(doc *goquery.Document) string {
	var blocks []string
	total := 0
	doc.Find("h1, h2, h3, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := normalizeText(s.Text())
		if len([]rune(text)) < 15 {
			return true
		}
		blocks = append(blocks, text)
		total += len(text) + 1
		return total <= snippetSoftLimit
	})

	snippet := strings.Join(blocks, "\n")
	runes := []rune(snippet)
	if len(runes) > snippetHardLimit {
		snippet = string(runes[:snippetHardLimit])
	}
	return snippet
}

func parsePrice(value string) int {
	if value == "" {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, value)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func absoluteURL(base, ref string) string {
	parsedBase, err := url.Parse(base)
	if err != nil {
		return strings.TrimSpace(ref)
	}
	parsedRef, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return strings.TrimSpace(ref)
	}
	return parsedBase.ResolveReference(parsedRef).String()
}

func uniqueKeepOrder(values []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func normalizeText(s string) string {
	return collapseSpaces(strings.TrimSpace(s))
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && v != "" {
			return v
		}
	}
	return ""
}

func fallbackFact(site domain.SourceSite, sourceURL string, cause error) domain.SourceFact {
	msg := cause.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return domain.SourceFact{
		Site:           site,
		SourceURL:      sourceURL,
		Title:          fallbackTitle(site),
		SourcePriceJPY: fallbackPrice(site),
		Specs:          map[string]string{},
		Note:           "fallback extraction 사용: " + msg,
		Fallback:       true,
	}
}

func fallbackTitle(site domain.SourceSite) string {
	switch site {
	case domain.SiteAmazonJP:
		return "Amazon JP 샘플 상품"
	case domain.SiteRakuten:
		return "Rakuten 샘플 상품"
	case domain.SiteYahooJP:
		return "Yahoo JP 샘플 상품"
	default:
		return "JP Mall 샘플 상품"
	}
}

func fallbackPrice(site domain.SourceSite) int {
	if site == domain.SiteAmazonJP {
		return 6800
	}
	return 4500
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
