package naver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"MarketBridge/internal/config"
	"MarketBridge/internal/payload"
)

// tokenSafetyMarginMS shortens the cached token lifetime so a token is
// never presented right at its expiry.
const tokenSafetyMarginMS = 60_000

// AuthError reports a failed credential exchange with the token endpoint.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError reports a rejected Commerce API call.
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Client talks to the Naver Commerce API. The bearer token is cached with
// its expiry; refresh runs under a lock so concurrent runs do not all hit
// the token endpoint at once.
type Client struct {
	cfg        config.NaverConfig
	httpClient *http.Client
	now        func() time.Time

	mu            sync.Mutex
	accessToken   string
	tokenExpireMS int64
}

// NewClient wires Commerce API credentials from configuration.
func NewClient(cfg config.NaverConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowMS := c.now().UnixMilli()
	if c.accessToken != "" && nowMS < c.tokenExpireMS-tokenSafetyMarginMS {
		return c.accessToken, nil
	}

	if c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		return "", &AuthError{Message: "NAVER_CLIENT_ID/NAVER_CLIENT_SECRET 설정이 필요합니다."}
	}
	if strings.EqualFold(c.cfg.TokenType, "SELLER") && c.cfg.AccountID == "" {
		return "", &AuthError{Message: "SELLER 타입은 NAVER_ACCOUNT_ID 설정이 필요합니다."}
	}

	timestamp := strconv.FormatInt(nowMS, 10)
	form := url.Values{
		"client_id":          {c.cfg.ClientID},
		"timestamp":          {timestamp},
		"client_secret_sign": {signCredential(c.cfg.ClientID, c.cfg.ClientSecret, timestamp)},
		"grant_type":         {"client_credentials"},
		"type":               {c.cfg.TokenType},
	}
	if c.cfg.AccountID != "" {
		form.Set("account_id", c.cfg.AccountID)
	}

	tokenURL := strings.TrimSuffix(c.cfg.APIBaseURL, "/") + "/v1/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &AuthError{Message: fmt.Sprintf("토큰 요청 생성 실패: %v", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Message: fmt.Sprintf("토큰 발급 실패: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &AuthError{Message: fmt.Sprintf("토큰 발급 실패: %d %s", resp.StatusCode, truncate(string(body), 300))}
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &token); err != nil {
		return "", &AuthError{Message: fmt.Sprintf("토큰 응답 파싱 실패: %v", err)}
	}
	if token.AccessToken == "" {
		return "", &AuthError{Message: "토큰 응답에 access_token이 없습니다."}
	}

	c.accessToken = token.AccessToken
	if token.ExpiresIn < 0 {
		token.ExpiresIn = 0
	}
	c.tokenExpireMS = nowMS + token.ExpiresIn*1000
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// signCredential produces the signed secret the token endpoint expects:
// an HMAC-SHA256 over "{client_id}_{timestamp}" keyed by the client
// secret, base64-encoded.
func signCredential(clientID, clientSecret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(clientID + "_" + timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CreateProduct submits a finished payload to the product-creation endpoint.
// A 401 response forces one re-authentication and a single retry.
func (c *Client) CreateProduct(ctx context.Context, product *payload.Value) (map[string]any, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(product)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("payload 직렬화 실패: %v", err)}
	}

	resp, raw, err := c.postProduct(ctx, token, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidateToken()
		retryToken, err := c.bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		resp, raw, err = c.postProduct(ctx, retryToken, body)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Message: fmt.Sprintf("상품등록 실패: %d %s", resp.StatusCode, truncate(raw, 500))}
	}

	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("상품등록 응답 파싱 실패: %v", err)}
	}
	return decoded, nil
}

func (c *Client) postProduct(ctx context.Context, token string, body []byte) (*http.Response, string, error) {
	createURL := strings.TrimSuffix(c.cfg.APIBaseURL, "/") + c.cfg.ProductCreatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, createURL, bytes.NewReader(body))
	if err != nil {
		return nil, "", &APIError{Message: fmt.Sprintf("상품등록 요청 생성 실패: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &APIError{Message: fmt.Sprintf("상품등록 요청 실패: %v", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &APIError{Message: fmt.Sprintf("상품등록 응답 읽기 실패: %v", err)}
	}
	return resp, string(raw), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
