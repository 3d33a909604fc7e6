package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/utils"
)

type MockReverseImageSearcher struct {
	mock.Mock
}

func (m *MockReverseImageSearcher) ReverseSearch(ctx context.Context, imageURL string) ([]models.ImageResult, error) {
	args := m.Called(ctx, imageURL)
	results, _ := args.Get(0).([]models.ImageResult)
	return results, args.Error(1)
}

const testImageURL = "https://i.ibb.co/abc/x.png"

func TestGatewaySearchSuccess(t *testing.T) {
	provider := new(MockReverseImageSearcher)
	results := sampleResults(3)
	provider.On("ReverseSearch", mock.Anything, testImageURL).Return(results, nil).Once()

	resp, err := NewGateway(provider, nil).Search(context.Background(), testImageURL)
	require.NoError(t, err)

	assert.Equal(t, results, resp.Results)
	require.NotEmpty(t, resp.ExcelBuffer)

	rows, err := openEncoded(t, resp.ExcelBuffer).GetRows(WorkbookSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, result := range results {
		assert.Equal(t, result.Title, rows[i+1][0])
		assert.Equal(t, result.Link, rows[i+1][2])
	}

	provider.AssertExpectations(t)
	provider.AssertNumberOfCalls(t, "ReverseSearch", 1)
}

func TestGatewaySearchEmptyResults(t *testing.T) {
	provider := new(MockReverseImageSearcher)
	provider.On("ReverseSearch", mock.Anything, testImageURL).Return([]models.ImageResult{}, nil)

	resp, err := NewGateway(provider, NewSpreadsheetEncoder()).Search(context.Background(), testImageURL)
	require.NoError(t, err)

	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	rows, err := openEncoded(t, resp.ExcelBuffer).GetRows(WorkbookSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGatewayForwardsProviderResults(t *testing.T) {
	imageResults := `[{"position": 1, "title": "a", "link": "https://x", "extra": {"k": "v"},
		"original_image": {"link": "https://o", "height": "600", "width": "wide"}}]`
	server, _ := newSerpServer(t, http.StatusOK, `{"image_results": `+imageResults+`}`)

	resp, err := NewGateway(newTestSearchService(server.URL), nil).Search(context.Background(), testImageURL)
	require.NoError(t, err)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	var wire struct {
		Results json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.JSONEq(t, imageResults, string(wire.Results))

	rows, err := openEncoded(t, resp.ExcelBuffer).GetRows(WorkbookSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	row := rows[1]
	require.GreaterOrEqual(t, len(row), 7)
	assert.Equal(t, "a", row[0])
	assert.Equal(t, "https://x", row[2])
	assert.Equal(t, "https://o", row[5])
	assert.Equal(t, "600", row[6])
	if len(row) > 7 {
		assert.Empty(t, row[7])
	}
}

func TestGatewaySearchFailures(t *testing.T) {
	cases := map[string]error{
		"no results field": &utils.AppError{Code: utils.CodeNoResults, Message: "no image_results", Cause: ErrNoImageResults},
		"provider down":    utils.ExternalServiceError("serpapi", errors.New("connection refused")),
		"plain error":      errors.New("boom"),
	}

	for name, providerErr := range cases {
		t.Run(name, func(t *testing.T) {
			provider := new(MockReverseImageSearcher)
			provider.On("ReverseSearch", mock.Anything, testImageURL).Return(nil, providerErr).Once()

			resp, err := NewGateway(provider, nil).Search(context.Background(), testImageURL)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, providerErr)
			provider.AssertNumberOfCalls(t, "ReverseSearch", 1)
		})
	}
}

func TestGatewayKeepsErrorCodes(t *testing.T) {
	provider := new(MockReverseImageSearcher)
	provider.On("ReverseSearch", mock.Anything, testImageURL).
		Return(nil, &utils.AppError{Code: utils.CodeNoResults, Message: "none", Cause: ErrNoImageResults})

	_, err := NewGateway(provider, nil).Search(context.Background(), testImageURL)
	assert.Equal(t, utils.CodeNoResults, utils.GetCode(err))
}

func TestGatewayStatus(t *testing.T) {
	gateway := NewGateway(newTestSearchService("https://serpapi.com"), nil)
	status := gateway.GetStatus()

	assert.Equal(t, "active", status["status"])
	provider, ok := status["provider"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "serpapi", provider["provider"])
}
