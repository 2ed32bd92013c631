package webcontext

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"MarketBridge/internal/config"
)

func newStubProvider(t *testing.T) (*Provider, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/html/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<a class="result__a" href="%s/page">Sony WH-1000XM5 review</a>
<a class="result__a" href="/l/?u=internal">internal redirect</a>
</body></html>`, srv.URL)
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>WH-1000XM5</h1>
<p>The flagship wireless headphones deliver industry leading noise canceling performance.</p>
</body></html>`)
	})
	mux.HandleFunc("/ia", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
	"AbstractText": "Noise-canceling headphones by Sony.",
	"AbstractURL": "https://en.wikipedia.org/wiki/Sony_WH-1000XM5",
	"Heading": "Sony WH-1000XM5",
	"RelatedTopics": [
		{"Text": "Sony audio products", "FirstURL": "https://duckduckgo.com/c/Sony"}
	]
}`)
	})
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"query":{"search":[{"title":"WH-1000XM5"}]}}`)
	})
	mux.HandleFunc("/summary/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
	"extract": "ソニーのワイヤレスノイズキャンセリングヘッドホン。",
	"content_urls": {"desktop": {"page": "https://ja.wikipedia.org/wiki/WH-1000XM5"}}
}`)
	})

	cfg := config.SearchConfig{
		DDGHTMLURL:          srv.URL + "/html/",
		DDGInstantURL:       srv.URL + "/ia",
		WikipediaAPIURL:     srv.URL + "/w/api.php",
		WikipediaSummaryURL: srv.URL + "/summary/",
	}
	return NewProvider(srv.Client(), cfg, nil), srv
}

func TestGatherMergesAllSources(t *testing.T) {
	p, srv := newStubProvider(t)

	pack := p.Gather(context.Background(), "Sony WH-1000XM5 wireless headphones")

	var sawSearch, sawExcerpt, sawAbstract, sawRelated, sawWikipedia bool
	for _, s := range pack.Snippets {
		switch {
		case strings.HasPrefix(s, "Search result: "):
			sawSearch = true
		case strings.HasPrefix(s, "Page excerpt: "):
			sawExcerpt = true
		case strings.HasPrefix(s, "DDG: "):
			sawAbstract = true
		case strings.HasPrefix(s, "DDG Related: "):
			sawRelated = true
		case strings.HasPrefix(s, "Wikipedia(WH-1000XM5): "):
			sawWikipedia = true
		}
	}
	if !sawSearch || !sawExcerpt || !sawAbstract || !sawRelated || !sawWikipedia {
		t.Errorf("missing sources in snippets: search=%v excerpt=%v abstract=%v related=%v wiki=%v\n%v",
			sawSearch, sawExcerpt, sawAbstract, sawRelated, sawWikipedia, pack.Snippets)
	}

	wantLinks := map[string]bool{
		srv.URL + "/page": false,
		"https://en.wikipedia.org/wiki/Sony_WH-1000XM5": false,
		"https://ja.wikipedia.org/wiki/WH-1000XM5":      false,
	}
	for _, l := range pack.Links {
		if strings.HasPrefix(l, "/") {
			t.Errorf("relative link leaked: %q", l)
		}
		if _, ok := wantLinks[l]; ok {
			wantLinks[l] = true
		}
	}
	for l, seen := range wantLinks {
		if !seen {
			t.Errorf("expected link %q in %v", l, pack.Links)
		}
	}

	if len(pack.Snippets) > maxSnippets {
		t.Errorf("snippets over cap: %d", len(pack.Snippets))
	}
	if len(pack.Links) > maxLinks {
		t.Errorf("links over cap: %d", len(pack.Links))
	}
}

func TestGatherDeduplicatesAcrossQueries(t *testing.T) {
	p, srv := newStubProvider(t)

	// primary query plus the model-number auxiliary query hit the same stub
	pack := p.Gather(context.Background(), "Sony WH-1000XM5")

	counts := map[string]int{}
	for _, l := range pack.Links {
		counts[l]++
	}
	if counts[srv.URL+"/page"] != 1 {
		t.Errorf("search link not deduplicated: %v", pack.Links)
	}
}

func TestGatherEmptyQuery(t *testing.T) {
	p, _ := newStubProvider(t)

	pack := p.Gather(context.Background(), "   ")
	if len(pack.Snippets) != 0 || len(pack.Links) != 0 {
		t.Errorf("expected empty pack, got %+v", pack)
	}
}

func TestGatherAllSourcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.SearchConfig{
		DDGHTMLURL:          srv.URL + "/html/",
		DDGInstantURL:       srv.URL + "/ia",
		WikipediaAPIURL:     srv.URL + "/w/api.php",
		WikipediaSummaryURL: srv.URL + "/summary/",
	}
	p := NewProvider(srv.Client(), cfg, nil)

	pack := p.Gather(context.Background(), "Sony WH-1000XM5")
	if len(pack.Snippets) != 0 || len(pack.Links) != 0 {
		t.Errorf("expected empty pack, got %+v", pack)
	}
}

func TestAuxiliaryQueries(t *testing.T) {
	queries := auxiliaryQueries("Sony WH-1000XM5 Wireless Headphones Black")

	var sawModel bool
	for _, q := range queries {
		if q == "WH-1000XM5" {
			sawModel = true
		}
	}
	if !sawModel {
		t.Errorf("model token missing from %v", queries)
	}
	if len(queries) > 5 {
		t.Errorf("too many auxiliary queries: %v", queries)
	}
}

func TestAuxiliaryQueriesPlainHangulTitle(t *testing.T) {
	if queries := auxiliaryQueries("무선 이어폰 화이트"); len(queries) != 0 {
		t.Errorf("expected no auxiliary queries, got %v", queries)
	}
}
