package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/utils"
)

// ErrMissingImageURL is returned when the host accepted the upload but sent no URL back.
var ErrMissingImageURL = errors.New("upload response has no image url")

// ImgBBService uploads images to ImgBB to get a publicly reachable URL.
type ImgBBService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewImgBBService creates a new ImgBB client. A nil httpClient uses DefaultHttpClient.
func NewImgBBService(cfg config.ImgBBConfig, httpClient *http.Client) *ImgBBService {
	if httpClient == nil {
		httpClient = DefaultHttpClient
	}
	return &ImgBBService{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// IsEnabled checks if the upload service is properly configured
func (s *ImgBBService) IsEnabled() bool {
	return s.apiKey != ""
}

// UploadImage sends the image as the multipart field "image" and returns data.url.
func (s *ImgBBService) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" {
		name = "image"
	}

	params := url.Values{}
	params.Set("key", s.apiKey)
	requestURL := fmt.Sprintf("%s/1/upload?%s", s.baseURL, params.Encode())

	resp, err := multiPartFormRequest(ctx, s.httpClient, requestURL, []MultiPartFile{
		{
			FieldName: "image",
			FileName:  name,
			Content:   bytes.NewReader(data),
		},
	})
	if err != nil {
		return "", utils.ExternalServiceError("imgbb", fmt.Errorf("upload request failed: %w", err))
	}
	defer closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", utils.ExternalServiceError("imgbb", httpErrorFrom(resp))
	}

	var uploadResp models.ImgBBResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", utils.ExternalServiceError("imgbb", fmt.Errorf("failed to parse upload response: %w", err))
	}

	if uploadResp.Data.URL == "" {
		if uploadResp.Error != nil && uploadResp.Error.Message != "" {
			return "", utils.ExternalServiceError("imgbb", fmt.Errorf("%w: %s", ErrMissingImageURL, uploadResp.Error.Message))
		}
		return "", utils.ExternalServiceError("imgbb", ErrMissingImageURL)
	}

	log.Info().
		Str("image_id", uploadResp.Data.ID).
		Str("url", uploadResp.Data.URL).
		Int("bytes", len(data)).
		Msg("Image uploaded")

	return uploadResp.Data.URL, nil
}

// GetStatus returns the status of the upload service
func (s *ImgBBService) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"provider": "imgbb",
		"base_url": s.baseURL,
	}

	if s.IsEnabled() {
		status["status"] = "enabled"
		status["api_key"] = utils.MaskSecret(s.apiKey)
	} else {
		status["status"] = "disabled"
		status["error"] = "IMGBB_API_KEY not set"
	}

	return status
}
