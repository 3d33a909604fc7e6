package client

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/services"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) UploadImage(ctx context.Context, name string, data []byte) (string, error) {
	args := m.Called(ctx, name, data)
	return args.String(0), args.Error(1)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, imageURL string) (*models.ReverseSearchResponse, error) {
	args := m.Called(ctx, imageURL)
	resp, _ := args.Get(0).(*models.ReverseSearchResponse)
	return resp, args.Error(1)
}

const hostedURL = "https://i.ibb.co/abc/x.png"

func threeResults() []models.ImageResult {
	return []models.ImageResult{
		{Title: "One", Link: "https://one.example", Source: "one.example"},
		{Title: "Two", Link: "https://two.example", Source: "two.example"},
		{Title: "Three", Link: "https://three.example", Source: "three.example"},
	}
}

func TestSubmitSuccess(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, "x.png", []byte("image")).Return(hostedURL, nil).Once()
	searcher.On("Search", mock.Anything, hostedURL).
		Return(&models.ReverseSearchResponse{Results: threeResults(), ExcelBuffer: "d29ya2Jvb2s="}, nil).Once()

	session := NewSession(uploader, searcher)
	assert.Equal(t, PhaseIdle, session.State().Phase)
	require.True(t, session.Select("x.png", []byte("image")))
	assert.Equal(t, PhaseSelected, session.State().Phase)

	st := session.Submit(context.Background())

	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, hostedURL, st.ImageURL)
	assert.Len(t, st.Results, 3)
	assert.Equal(t, models.SearchResult{Title: "One", Link: "https://one.example"}, st.Results[0])
	assert.Equal(t, "d29ya2Jvb2s=", st.Workbook)
	assert.True(t, st.CanDownload())
	assert.False(t, st.Busy())
	assert.Empty(t, st.Message)

	uploader.AssertExpectations(t)
	searcher.AssertExpectations(t)
}

func TestSubmitUploadFailure(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, "x.png", mock.Anything).Return("", errors.New("network down"))

	session := NewSession(uploader, searcher)
	session.Select("x.png", []byte("image"))
	st := session.Submit(context.Background())

	assert.Equal(t, PhaseError, st.Phase)
	assert.NotEmpty(t, st.Message)
	assert.Equal(t, MessageUploadOrSearchFailed, st.Message)
	assert.Empty(t, st.ImageURL)
	assert.False(t, st.Busy())
	assert.False(t, st.CanDownload())
	searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSubmitSearchFailure(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, "x.png", mock.Anything).Return(hostedURL, nil)
	searcher.On("Search", mock.Anything, hostedURL).Return(nil, errors.New("500 Failed to process image search"))

	session := NewSession(uploader, searcher)
	session.Select("x.png", []byte("image"))
	st := session.Submit(context.Background())

	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MessageUploadOrSearchFailed, st.Message)
	assert.Equal(t, hostedURL, st.ImageURL)
	assert.False(t, st.Busy())
}

func TestSubmitNoResults(t *testing.T) {
	cases := map[string]*models.ReverseSearchResponse{
		"empty list":   {Results: []models.ImageResult{}, ExcelBuffer: "d29ya2Jvb2s="},
		"missing list": {},
		"nil response": nil,
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			uploader := new(MockUploader)
			searcher := new(MockSearcher)
			uploader.On("UploadImage", mock.Anything, "x.png", mock.Anything).Return(hostedURL, nil)
			searcher.On("Search", mock.Anything, hostedURL).Return(resp, nil)

			session := NewSession(uploader, searcher)
			session.Select("x.png", []byte("image"))
			st := session.Submit(context.Background())

			assert.Equal(t, PhaseNoResults, st.Phase)
			assert.NotEqual(t, PhaseError, st.Phase)
			assert.Equal(t, MessageNoResults, st.Message)
			assert.Empty(t, st.Results)
			assert.False(t, st.Busy())
			assert.False(t, st.CanDownload())
		})
	}
}

func TestSubmitWithoutFileIsNoop(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)

	st := NewSession(uploader, searcher).Submit(context.Background())

	assert.Equal(t, PhaseIdle, st.Phase)
	uploader.AssertNotCalled(t, "UploadImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestBusyWhileUploading(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	session := NewSession(uploader, searcher)

	entered := make(chan struct{})
	release := make(chan struct{})
	uploader.On("UploadImage", mock.Anything, "x.png", mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(hostedURL, nil).Once()
	searcher.On("Search", mock.Anything, hostedURL).
		Return(&models.ReverseSearchResponse{Results: threeResults(), ExcelBuffer: "d29ya2Jvb2s="}, nil).Once()

	session.Select("x.png", []byte("image"))
	done := make(chan State)
	go func() { done <- session.Submit(context.Background()) }()

	<-entered
	assert.True(t, session.State().Busy())
	assert.False(t, session.Select("other.png", []byte("other")))
	assert.Equal(t, PhaseUploading, session.Submit(context.Background()).Phase)
	close(release)

	st := <-done
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, "x.png", st.FileName)
	uploader.AssertNumberOfCalls(t, "UploadImage", 1)
}

func TestSelectRestartsCycle(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, mock.Anything, mock.Anything).Return(hostedURL, nil)
	searcher.On("Search", mock.Anything, hostedURL).
		Return(&models.ReverseSearchResponse{Results: threeResults(), ExcelBuffer: "d29ya2Jvb2s="}, nil)

	session := NewSession(uploader, searcher)
	session.Select("x.png", []byte("image"))
	session.Submit(context.Background())

	require.True(t, session.Select("y.png", []byte("other")))
	st := session.State()
	assert.Equal(t, PhaseSelected, st.Phase)
	assert.Equal(t, "y.png", st.FileName)
	assert.Empty(t, st.Results)
	assert.Empty(t, st.ImageURL)
	assert.Empty(t, st.Workbook)
}

func TestDownload(t *testing.T) {
	workbook, err := services.NewSpreadsheetEncoder().Encode(threeResults())
	require.NoError(t, err)

	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, mock.Anything, mock.Anything).Return(hostedURL, nil)
	searcher.On("Search", mock.Anything, hostedURL).
		Return(&models.ReverseSearchResponse{Results: threeResults(), ExcelBuffer: workbook}, nil)

	session := NewSession(uploader, searcher)
	session.Select("x.png", []byte("image"))
	session.Submit(context.Background())

	dir := t.TempDir()
	path, err := session.Download(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "image_results.xlsx"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK\x03\x04")))
	assert.Equal(t, PhaseReady, session.State().Phase)
}

func TestDownloadWithoutWorkbookIsNoop(t *testing.T) {
	session := NewSession(new(MockUploader), new(MockSearcher))
	dir := t.TempDir()

	path, err := session.Download(dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, PhaseIdle, session.State().Phase)
}

func TestDownloadDecodeFailure(t *testing.T) {
	uploader := new(MockUploader)
	searcher := new(MockSearcher)
	uploader.On("UploadImage", mock.Anything, mock.Anything, mock.Anything).Return(hostedURL, nil)
	searcher.On("Search", mock.Anything, hostedURL).
		Return(&models.ReverseSearchResponse{Results: threeResults(), ExcelBuffer: "%%% not base64 %%%"}, nil)

	session := NewSession(uploader, searcher)
	session.Select("x.png", []byte("image"))
	session.Submit(context.Background())

	path, err := session.Download(t.TempDir())
	require.Error(t, err)
	assert.Empty(t, path)

	st := session.State()
	assert.Equal(t, PhaseError, st.Phase)
	assert.Equal(t, MessageDownloadFailed, st.Message)
	assert.Len(t, st.Results, 3)
}
