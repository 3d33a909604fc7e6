package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/services"
	"github.com/rakshith2001/reverse-search/utils"
)

// GatewayClient calls a remote POST /api/reverse-search endpoint.
type GatewayClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGatewayClient creates a client for the gateway at baseURL. A nil httpClient uses services.DefaultHttpClient.
func NewGatewayClient(baseURL string, httpClient *http.Client) *GatewayClient {
	if httpClient == nil {
		httpClient = services.DefaultHttpClient
	}
	return &GatewayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Search posts the image URL to the gateway. A response whose results field is
// missing or not a list comes back with nil Results rather than an error.
func (c *GatewayClient) Search(ctx context.Context, imageURL string) (*models.ReverseSearchResponse, error) {
	payload, err := json.Marshal(models.ReverseSearchRequest{ImageURL: imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/reverse-search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", services.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.ExternalServiceError("gateway", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			log.Err(err).Msg("Failed to close response body")
		}
	}(resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.ExternalServiceError("gateway", err)
	}

	if resp.StatusCode != http.StatusOK {
		httpErr := &utils.HttpError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
		var errResp models.ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, utils.ExternalServiceError("gateway", fmt.Errorf("%w: %s", httpErr, errResp.Error))
		}
		return nil, utils.ExternalServiceError("gateway", httpErr)
	}

	var raw struct {
		Results     json.RawMessage `json:"results"`
		ExcelBuffer string          `json:"excelBuffer"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, utils.ExternalServiceError("gateway", fmt.Errorf("failed to parse gateway response: %w", err))
	}

	out := &models.ReverseSearchResponse{ExcelBuffer: raw.ExcelBuffer}
	results := bytes.TrimSpace(raw.Results)
	if len(results) > 0 && results[0] == '[' {
		if err := json.Unmarshal(results, &out.Results); err != nil {
			return nil, utils.ExternalServiceError("gateway", fmt.Errorf("failed to parse results: %w", err))
		}
	}

	return out, nil
}
