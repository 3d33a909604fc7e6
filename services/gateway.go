package services

import (
	"context"
	"time"

	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/utils"
)

// ImageSearchGateway answers a reverse search with the results and their workbook.
type ImageSearchGateway interface {
	Search(ctx context.Context, imageURL string) (*models.ReverseSearchResponse, error)
}

// Gateway bridges callers to the reverse image search provider.
// It holds no per-request state and never caches.
type Gateway struct {
	provider ReverseImageSearcher
	encoder  *SpreadsheetEncoder
}

func NewGateway(provider ReverseImageSearcher, encoder *SpreadsheetEncoder) *Gateway {
	if encoder == nil {
		encoder = NewSpreadsheetEncoder()
	}
	return &Gateway{
		provider: provider,
		encoder:  encoder,
	}
}

// Search calls the provider exactly once and builds the workbook from the full result list.
// Results and workbook are returned together or not at all.
func (g *Gateway) Search(ctx context.Context, imageURL string) (*models.ReverseSearchResponse, error) {
	start := time.Now()

	results, err := g.provider.ReverseSearch(ctx, imageURL)
	if err != nil {
		return nil, utils.Wrap(err, "reverse image search failed")
	}
	if results == nil {
		results = []models.ImageResult{}
	}

	encoded, err := g.encoder.Encode(results)
	if err != nil {
		return nil, utils.Wrap(err, "failed to build results workbook")
	}

	log.Info().
		Str("image_url", imageURL).
		Int("results", len(results)).
		Dur("took", time.Since(start)).
		Msg("Reverse search completed")

	return &models.ReverseSearchResponse{
		Results:     results,
		ExcelBuffer: encoded,
	}, nil
}

// GetStatus returns the status of the gateway and its provider
func (g *Gateway) GetStatus() map[string]interface{} {
	status := map[string]interface{}{
		"status": "active",
	}
	if reporter, ok := g.provider.(interface{ GetStatus() map[string]interface{} }); ok {
		status["provider"] = reporter.GetStatus()
	}
	return status
}
