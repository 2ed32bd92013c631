package config

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "MARKETBRIDGE_CONFIG"
	serverAddrEnv        = "MARKETBRIDGE_ADDR"
	databaseDSNEnv       = "DATABASE_DSN"
	openAIAPIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv       = "OPENAI_MODEL"
	naverClientIDEnv     = "NAVER_CLIENT_ID"
	naverClientSecretEnv = "NAVER_CLIENT_SECRET"
	naverAccountIDEnv    = "NAVER_ACCOUNT_ID"
)

// Config holds every setting the pipeline and its adapters need.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Pricing  PricingConfig  `yaml:"pricing"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Naver    NaverConfig    `yaml:"naver"`
}

// AppConfig carries service identity and publish toggles.
type AppConfig struct {
	Name                 string `yaml:"name"`
	Env                  string `yaml:"env"`
	AutoPublish          bool   `yaml:"autoPublish"`
	AutoPublishOnRunLink bool   `yaml:"autoPublishOnRunLink"`
	MarketChannel        string `yaml:"marketChannel"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig describes the optional run-history Postgres connection.
// An empty DSN disables persistence entirely.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// PricingConfig holds the resale price formula inputs.
type PricingConfig struct {
	MarkupRate      float64 `yaml:"markupRate"`
	MinMarginRate   float64 `yaml:"minMarginRate"`
	FxRate          float64 `yaml:"fxRate"`
	ShippingCostKRW int     `yaml:"shippingCostKrw"`
	MarketFeeRate   float64 `yaml:"marketFeeRate"`
}

// LLMConfig defines how to contact the OpenAI-compatible completion API.
type LLMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// SearchConfig points at the web-context lookup endpoints. Overridable so
// tests can aim them at local stubs.
type SearchConfig struct {
	DDGHTMLURL          string `yaml:"ddgHtmlUrl"`
	DDGInstantURL       string `yaml:"ddgInstantUrl"`
	WikipediaAPIURL     string `yaml:"wikipediaApiUrl"`
	WikipediaSummaryURL string `yaml:"wikipediaSummaryUrl"`
}

// NaverConfig wires the Commerce API credentials and product defaults.
type NaverConfig struct {
	ClientID          string        `yaml:"clientId"`
	ClientSecret      string        `yaml:"clientSecret"`
	AccountID         string        `yaml:"accountId"`
	APIBaseURL        string        `yaml:"apiBaseUrl"`
	TokenType         string        `yaml:"tokenType"`
	ProductCreatePath string        `yaml:"productCreatePath"`
	UseRealAPI        bool          `yaml:"useRealApi"`
	Payload           PayloadConfig `yaml:"payload"`
}

// PayloadConfig supplies the product-creation payload defaults.
type PayloadConfig struct {
	LeafCategoryID         int    `yaml:"leafCategoryId"`
	RepresentativeImageURL string `yaml:"representativeImageUrl"`
	OptionalImageURLs      string `yaml:"optionalImageUrls"`
	OriginAreaCode         string `yaml:"originAreaCode"`
	Importer               string `yaml:"importer"`
	AfterServiceGuide      string `yaml:"afterServiceGuide"`
	AfterServiceTel        string `yaml:"afterServiceTel"`
	DetailContentHTML      string `yaml:"detailContentHtml"`
	DefaultNoticeType      string `yaml:"defaultNoticeType"`
	TemplateMode           string `yaml:"templateMode"`
}

// OptionalImages splits the comma-separated optional image list.
func (p PayloadConfig) OptionalImages() []string {
	var out []string
	for _, u := range strings.Split(p.OptionalImageURLs, ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Load reads YAML configuration over defaults (if present) and applies
// environment overrides. It never fails; bad input falls back to defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(serverAddrEnv); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(naverClientIDEnv); v != "" {
		c.Naver.ClientID = v
	}

	if v := os.Getenv(naverClientSecretEnv); v != "" {
		c.Naver.ClientSecret = v
	}

	if v := os.Getenv(naverAccountIDEnv); v != "" {
		c.Naver.AccountID = v
	}
}

func defaultConfig() Config {
	return Config{
		App: AppConfig{
			Name:                 "MarketBridge",
			Env:                  "dev",
			AutoPublish:          false,
			AutoPublishOnRunLink: true,
			MarketChannel:        "naver",
		},
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{Addr: ":8080"},
		Pricing: PricingConfig{
			MarkupRate:      0.35,
			MinMarginRate:   0.15,
			FxRate:          9.2,
			ShippingCostKRW: 9000,
			MarketFeeRate:   0.13,
		},
		LLM: LLMConfig{
			Enabled:  true,
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4.1-mini",
		},
		Search: SearchConfig{
			DDGHTMLURL:          "https://duckduckgo.com/html/",
			DDGInstantURL:       "https://api.duckduckgo.com/",
			WikipediaAPIURL:     "https://ja.wikipedia.org/w/api.php",
			WikipediaSummaryURL: "https://ja.wikipedia.org/api/rest_v1/page/summary/",
		},
		Naver: NaverConfig{
			APIBaseURL:        "https://api.commerce.naver.com/external",
			TokenType:         "SELLER",
			ProductCreatePath: "/v2/products",
			UseRealAPI:        false,
			Payload: PayloadConfig{
				LeafCategoryID:    50000000,
				OriginAreaCode:    "02",
				Importer:          "구매대행",
				AfterServiceGuide: "채팅문의",
				AfterServiceTel:   "010-0000-0000",
				DetailContentHTML: "<p>상세 설명 준비 중</p>",
				DefaultNoticeType: "FASHION_ITEMS",
				TemplateMode:      "auto",
			},
		},
	}
}
