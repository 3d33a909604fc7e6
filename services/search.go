package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/utils"
)

var log = logger.New("services")

// ErrNoImageResults is returned when the provider answer carries no image_results field.
var ErrNoImageResults = errors.New("no image results found")

// ReverseImageSearcher finds images on the web that look like the one at imageURL.
type ReverseImageSearcher interface {
	ReverseSearch(ctx context.Context, imageURL string) ([]models.ImageResult, error)
}

// SearchService queries SerpAPI's reverse image search engines.
type SearchService struct {
	apiKey     string
	baseURL    string
	engine     string
	httpClient *http.Client
}

// NewSearchService creates a new SerpAPI client. A nil httpClient uses DefaultHttpClient.
func NewSearchService(cfg config.SerpAPIConfig, httpClient *http.Client) *SearchService {
	if httpClient == nil {
		httpClient = DefaultHttpClient
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "yandex_images"
	}

	return &SearchService{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		engine:     engine,
		httpClient: httpClient,
	}
}

// IsEnabled checks if the search service is properly configured
func (s *SearchService) IsEnabled() bool {
	return s.apiKey != ""
}

// ReverseSearch calls the provider once and returns its image results.
// A present but empty result list is not an error.
func (s *SearchService) ReverseSearch(ctx context.Context, imageURL string) ([]models.ImageResult, error) {
	params := url.Values{}
	params.Set("engine", s.engine)
	params.Set("url", imageURL)
	params.Set("api_key", s.apiKey)

	requestURL := fmt.Sprintf("%s/search.json?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	log.Debug().
		Str("engine", s.engine).
		Str("image_url", imageURL).
		Msg("Sending reverse image search")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, utils.ExternalServiceError("serpapi", fmt.Errorf("search request failed: %w", err))
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		httpErr := httpErrorFrom(resp)
		var body models.SerpAPIResponse
		if json.Unmarshal([]byte(httpErr.Body), &body) == nil && body.Error != "" {
			return nil, utils.ExternalServiceError("serpapi", fmt.Errorf("%w: %s", httpErr, body.Error))
		}
		return nil, utils.ExternalServiceError("serpapi", httpErr)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.ExternalServiceError("serpapi", fmt.Errorf("failed to read search response: %w", err))
	}

	var serpResp models.SerpAPIResponse
	if err := json.Unmarshal(body, &serpResp); err != nil {
		return nil, utils.ExternalServiceError("serpapi", fmt.Errorf("failed to parse search response: %w", err))
	}

	raw := bytes.TrimSpace(serpResp.ImageResults)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if serpResp.Error != "" {
			return nil, utils.WithCode(utils.CodeNoResults, fmt.Errorf("%w: %s", ErrNoImageResults, serpResp.Error))
		}
		return nil, utils.WithCode(utils.CodeNoResults, ErrNoImageResults)
	}

	var results []models.ImageResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, utils.ExternalServiceError("serpapi", fmt.Errorf("malformed image_results: %w", err))
	}
	if results == nil {
		results = []models.ImageResult{}
	}

	log.Debug().
		Str("search_id", serpResp.SearchMetadata.ID).
		Int("results", len(results)).
		Msg("Reverse image search finished")

	return results, nil
}

// GetStatus returns the status of the search service
func (s *SearchService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"provider": "serpapi",
		"base_url": s.baseURL,
		"engine":   s.engine,
	}

	if s.IsEnabled() {
		status["status"] = "enabled"
		status["api_key"] = utils.MaskSecret(s.apiKey)
	} else {
		status["status"] = "disabled"
		status["error"] = "SERPAPI_API_KEY not set"
	}

	return status
}

// redactQuery drops the query string, which carries API keys.
func redactQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
