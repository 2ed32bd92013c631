package domain

import "time"

// SourceSite identifies which Japanese marketplace a listing URL belongs to.
type SourceSite string

const (
	SiteAmazonJP SourceSite = "amazon_jp"
	SiteRakuten  SourceSite = "rakuten"
	SiteYahooJP  SourceSite = "yahoo_jp"
	SiteOther    SourceSite = "other"
)

// SourceFact is the normalized, site-agnostic product record produced by extraction.
// It is immutable once the extractor returns it.
type SourceFact struct {
	Site                   SourceSite
	SourceURL              string
	Title                  string
	SourcePriceJPY         int
	RepresentativeImageURL string
	ImageURLs              []string
	Description            string
	KeyFeatures            []string
	Specs                  map[string]string
	RawTextSnippet         string
	Note                   string
	// Fallback marks placeholder facts produced when the page could not
	// be fetched or parsed; downstream enrichment is skipped for these.
	Fallback bool
}

// ContextPack carries auxiliary web evidence gathered for a product title.
// It only feeds the enrichment stage and is discarded afterwards.
type ContextPack struct {
	Snippets []string
	Links    []string
}

// Enrichment holds the Korean-localized copy produced for one listing.
// Free-text fields are blank when localization failed or was filtered out.
type Enrichment struct {
	TitleKO                 string
	SummaryKO               string
	ProductJudgementKO      string
	SellingPointsKO         []string
	DetailOutlineKO         []string
	DetailSectionsKO        []string
	TranslatedDescriptionKO string
	TranslatedKeyFeaturesKO []string
	TranslatedSpecsKO       map[string]string
	TranslatedSnippetKO     string
}

// Extraction is the merged listing view reported back to callers:
// extracted facts with localized copy layered on top.
type Extraction struct {
	SourceSite             SourceSite        `json:"source_site"`
	SourceURL              string            `json:"source_url"`
	Title                  string            `json:"title"`
	SourcePriceJPY         int               `json:"source_price_jpy"`
	RepresentativeImageURL string            `json:"representative_image_url,omitempty"`
	ImageURLs              []string          `json:"image_urls"`
	SourceDescription      string            `json:"source_description"`
	KeyFeatures            []string          `json:"key_features"`
	Specs                  map[string]string `json:"specs"`
	RawTextSnippet         string            `json:"raw_text_snippet"`
	SummaryKO              string            `json:"llm_summary_ko"`
	ProductJudgementKO     string            `json:"llm_product_judgement_ko"`
	SellingPointsKO        []string          `json:"llm_selling_points_ko"`
	DetailOutlineKO        []string          `json:"llm_detail_outline_ko"`
	DetailSectionsKO       []string          `json:"llm_detail_sections_ko"`
	SourceLinks            []string          `json:"source_links"`
}

// PricingResult is recomputed for every run from the configured rates.
type PricingResult struct {
	FxRate              float64 `json:"fx_rate"`
	ShippingCostKRW     int     `json:"shipping_cost_krw"`
	MarketFeeRate       float64 `json:"market_fee_rate"`
	TargetPriceKRW      int     `json:"target_price_krw"`
	EstimatedMarginRate float64 `json:"estimated_margin_rate"`
}

// PolicyResult reports the content-policy verdict for a localized title.
type PolicyResult struct {
	Risk    string   `json:"risk"`
	Blocked bool     `json:"blocked"`
	Reasons []string `json:"reasons"`
}

// PublishResult describes a single marketplace submission attempt.
type PublishResult struct {
	Attempted       bool   `json:"attempted"`
	Published       bool   `json:"published"`
	MarketProductID string `json:"market_product_id,omitempty"`
	Message         string `json:"message"`
}

// Approval and publish statuses carried in RunResult.
const (
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	PublishStatusDraft     = "draft"
	PublishStatusPublished = "published"
	PublishStatusError     = "error"
)

// RunResult aggregates everything one pipeline run produced. A run never
// fails outright; degradations surface through statuses and notes.
type RunResult struct {
	Extraction     Extraction     `json:"extraction"`
	Pricing        PricingResult  `json:"pricing"`
	Policy         PolicyResult   `json:"policy"`
	ApprovalStatus string         `json:"approval_status"`
	PublishStatus  string         `json:"publish_status"`
	PublishResult  PublishResult  `json:"publish_result"`
	Notes          []string       `json:"notes"`
	Debug          map[string]any `json:"debug"`
}

// RunRecord is the audit snapshot persisted per run.
type RunRecord struct {
	SourceURL       string
	Title           string
	ApprovalStatus  string
	PublishStatus   string
	MarketProductID string
	MarginRate      float64
	CreatedAt       time.Time
}
