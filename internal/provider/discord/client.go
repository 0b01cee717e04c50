// Package discord fetches the quest catalog from the Discord API.
package discord

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/kythia/questapi/internal/errors"
)

const (
	DefaultBaseURL = "https://discord.com/api/v10"
	QuestsPath     = "/quests/@me"

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"
	defaultLocale    = "en-US"
	clientBuild      = 9298544
)

type ClientOptions struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Timeout    time.Duration
	Locale     string
	UserAgent  string
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL         string
	token           string
	httpClient      *http.Client
	locale          string
	userAgent       string
	superProperties string
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = defaultLocale
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:         baseURL,
		token:           strings.TrimSpace(opts.Token),
		httpClient:      httpClient,
		locale:          locale,
		userAgent:       userAgent,
		superProperties: encodeSuperProperties(locale, userAgent),
	}
}

// FetchQuests performs one GET of the caller's quest catalog and returns the
// raw body. There are no retries.
func (c *Client) FetchQuests(ctx context.Context) ([]byte, error) {
	if c.token == "" {
		return nil, apperrors.ErrProviderFetch("discord token is empty", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+QuestsPath, nil)
	if err != nil {
		return nil, apperrors.ErrProviderFetch("failed to build request", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ErrProviderFetch("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ErrProviderFetch("failed to read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		return nil, apperrors.ErrProviderFetch("unexpected provider status", apiErr)
	}
	if !json.Valid(body) {
		return nil, apperrors.ErrProviderFetch("failed to parse response", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))})
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	h := req.Header
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "en,en-US;q=0.9")
	h.Set("Authorization", c.token)
	h.Set("Content-Type", "application/json")
	h.Set("Priority", "u=1, i")
	h.Set("Sec-Ch-Ua", `"Google Chrome";v="141", "Not?A_Brand";v="8", "Chromium";v="141"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"Linux"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", c.userAgent)
	h.Set("X-Discord-Locale", c.locale)
	h.Set("X-Super-Properties", c.superProperties)
}

type superProperties struct {
	OS                     string  `json:"os"`
	Browser                string  `json:"browser"`
	Device                 string  `json:"device"`
	SystemLocale           string  `json:"system_locale"`
	BrowserUserAgent       string  `json:"browser_user_agent"`
	BrowserVersion         string  `json:"browser_version"`
	OSVersion              string  `json:"os_version"`
	Referrer               string  `json:"referrer"`
	ReferringDomain        string  `json:"referring_domain"`
	ReferrerCurrent        string  `json:"referrer_current"`
	ReferringDomainCurrent string  `json:"referring_domain_current"`
	ReleaseChannel         string  `json:"release_channel"`
	ClientBuildNumber      int     `json:"client_build_number"`
	ClientEventSource      *string `json:"client_event_source"`
	DesignID               int     `json:"design_id"`
}

func encodeSuperProperties(locale, userAgent string) string {
	raw, _ := json.Marshal(superProperties{
		OS:                "Linux",
		Browser:           "Chrome",
		SystemLocale:      locale,
		BrowserUserAgent:  userAgent,
		BrowserVersion:    "141.0.0.0",
		OSVersion:         "10",
		ReleaseChannel:    "stable",
		ClientBuildNumber: clientBuild,
	})
	return base64.StdEncoding.EncodeToString(raw)
}
