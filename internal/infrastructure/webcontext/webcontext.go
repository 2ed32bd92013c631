package webcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MarketBridge/internal/config"
	"MarketBridge/internal/domain"
	"MarketBridge/internal/ports"
)

const (
	maxQueries    = 4
	maxSnippets   = 16
	maxLinks      = 12
	maxAnchors    = 5
	excerptTarget = 700
	excerptLimit  = 800

	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"
)

var (
	modelTokenExpr = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9\-_/]{3,}`)
	phraseExpr     = regexp.MustCompile(`[A-Za-z]{3,}\s+[A-Za-z0-9\-]{2,}`)
	digitExpr      = regexp.MustCompile(`\d`)
)

// Provider gathers auxiliary evidence for a product title from web search,
// an instant-answer API, and the Japanese Wikipedia. Every sub-source is
// independently guarded: a failure contributes nothing rather than an error.
type Provider struct {
	client *http.Client
	cfg    config.SearchConfig
	logger *slog.Logger
}

var _ ports.ContextProvider = (*Provider)(nil)

// NewProvider wires the lookup endpoints; a nil client gets a 10s timeout.
func NewProvider(client *http.Client, cfg config.SearchConfig, logger *slog.Logger) *Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Provider{client: client, cfg: cfg, logger: logger}
}

// Gather merges snippets and links from every sub-source, deduplicated in
// first-seen order and capped. Empty output is a valid non-error result.
func (p *Provider) Gather(ctx context.Context, query string) domain.ContextPack {
	q := strings.TrimSpace(query)
	if q == "" {
		return domain.ContextPack{}
	}

	var snippets, links []string

	queries := append([]string{q}, auxiliaryQueries(q)...)
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	for _, qq := range queries {
		s, l := p.searchResults(ctx, qq)
		snippets = append(snippets, s...)
		links = append(links, l...)
	}

	s, l := p.instantAnswer(ctx, q)
	snippets = append(snippets, s...)
	links = append(links, l...)

	s, l = p.wikipedia(ctx, q)
	snippets = append(snippets, s...)
	links = append(links, l...)

	snippets = uniqueKeepOrder(snippets)
	if len(snippets) > maxSnippets {
		snippets = snippets[:maxSnippets]
	}
	links = uniqueKeepOrder(links)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}

	p.debug("context gathered", "query", q, "snippets", len(snippets), "links", len(links))
	return domain.ContextPack{Snippets: snippets, Links: links}
}

// auxiliaryQueries pulls model/brand clues out of the title: tokens carrying
// a digit and two-word latin phrases.
func auxiliaryQueries(title string) []string {
	var strong []string
	for _, token := range modelTokenExpr.FindAllString(title, -1) {
		if len(token) >= 5 && digitExpr.MatchString(token) {
			strong = append(strong, token)
		}
	}
	if len(strong) > 3 {
		strong = strong[:3]
	}

	phrases := phraseExpr.FindAllString(title, -1)
	if len(phrases) > 2 {
		phrases = phrases[:2]
	}

	return uniqueKeepOrder(append(strong, phrases...))
}

func (p *Provider) searchResults(ctx context.Context, query string) ([]string, []string) {
	doc, err := p.fetchDocument(ctx, p.cfg.DDGHTMLURL, url.Values{"q": {query}})
	if err != nil {
		p.debug("search skipped", "query", query, "error", err)
		return nil, nil
	}

	anchors := doc.Find("a.result__a")
	if anchors.Length() == 0 {
		anchors = doc.Find("a[href]")
	}

	var snippets, links []string
	anchors.EachWithBreak(func(i int, a *goquery.Selection) bool {
		if i >= maxAnchors {
			return false
		}
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		title := normalizeText(a.Text())
		if href == "" || title == "" || strings.HasPrefix(href, "/") {
			return true
		}
		links = append(links, href)
		snippets = append(snippets, "Search result: "+title)
		if excerpt := p.pageExcerpt(ctx, href); excerpt != "" {
			snippets = append(snippets, "Page excerpt: "+excerpt)
		}
		return true
	})
	return snippets, links
}

func (p *Provider) pageExcerpt(ctx context.Context, pageURL string) string {
	excerptCtx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(excerptCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	var parts []string
	total := 0
	if h1 := normalizeText(doc.Find("h1").First().Text()); h1 != "" {
		parts = append(parts, h1)
		total = len(h1)
	}
	doc.Find("p, li").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := normalizeText(s.Text())
		if len([]rune(text)) < 30 {
			return true
		}
		parts = append(parts, text)
		total += len(text) + 1
		return total <= excerptTarget
	})

	excerpt := strings.Join(parts, " ")
	runes := []rune(excerpt)
	if len(runes) > excerptLimit {
		excerpt = string(runes[:excerptLimit])
	}
	return excerpt
}

func (p *Provider) instantAnswer(ctx context.Context, query string) ([]string, []string) {
	params := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}
	raw, err := p.fetchJSON(ctx, p.cfg.DDGInstantURL, params)
	if err != nil {
		p.debug("instant answer skipped", "query", query, "error", err)
		return nil, nil
	}

	var data struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
			Topics   []struct {
				Text     string `json:"Text"`
				FirstURL string `json:"FirstURL"`
			} `json:"Topics"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, nil
	}

	var snippets, links []string
	if abstract := strings.TrimSpace(data.AbstractText); abstract != "" {
		snippets = append(snippets, "DDG: "+abstract)
	}
	if u := strings.TrimSpace(data.AbstractURL); u != "" {
		links = append(links, u)
	}
	if heading := strings.TrimSpace(data.Heading); heading != "" {
		snippets = append(snippets, "DDG Heading: "+heading)
	}

	topics := data.RelatedTopics
	if len(topics) > 6 {
		topics = topics[:6]
	}
	for _, topic := range topics {
		if text := strings.TrimSpace(topic.Text); text != "" {
			snippets = append(snippets, "DDG Related: "+text)
		}
		if u := strings.TrimSpace(topic.FirstURL); u != "" {
			links = append(links, u)
		}
		subs := topic.Topics
		if len(subs) > 3 {
			subs = subs[:3]
		}
		for _, sub := range subs {
			if text := strings.TrimSpace(sub.Text); text != "" {
				snippets = append(snippets, "DDG Related: "+text)
			}
			if u := strings.TrimSpace(sub.FirstURL); u != "" {
				links = append(links, u)
			}
		}
	}
	return snippets, links
}

func (p *Provider) wikipedia(ctx context.Context, query string) ([]string, []string) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"format":   {"json"},
		"srlimit":  {"2"},
	}
	raw, err := p.fetchJSON(ctx, p.cfg.WikipediaAPIURL, params)
	if err != nil {
		p.debug("wikipedia search skipped", "query", query, "error", err)
		return nil, nil
	}

	var search struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(raw, &search); err != nil {
		return nil, nil
	}

	var snippets, links []string
	for _, hit := range search.Query.Search {
		if hit.Title == "" {
			continue
		}
		summaryURL := strings.TrimSuffix(p.cfg.WikipediaSummaryURL, "/") + "/" + url.PathEscape(hit.Title)
		raw, err := p.fetchJSON(ctx, summaryURL, nil)
		if err != nil {
			continue
		}
		var summary struct {
			Extract     string `json:"extract"`
			ContentURLs struct {
				Desktop struct {
					Page string `json:"page"`
				} `json:"desktop"`
			} `json:"content_urls"`
		}
		if err := json.Unmarshal(raw, &summary); err != nil {
			continue
		}
		if extract := strings.TrimSpace(summary.Extract); extract != "" {
			snippets = append(snippets, fmt.Sprintf("Wikipedia(%s): %s", hit.Title, extract))
		}
		if page := strings.TrimSpace(summary.ContentURLs.Desktop.Page); page != "" {
			links = append(links, page)
		}
	}
	return snippets, links
}

func (p *Provider) fetchDocument(ctx context.Context, endpoint string, params url.Values) (*goquery.Document, error) {
	resp, err := p.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (p *Provider) fetchJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	resp, err := p.get(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (p *Provider) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	target := endpoint
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		target = endpoint + sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp, nil
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
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

func (p *Provider) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
