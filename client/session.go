// Package client drives one upload-and-search cycle: host the image, ask the
// gateway for similar images, keep the results and offer the workbook for download.
package client

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/services"
)

var log = logger.New("client")

// Phase is the position of a Session in its state machine.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSelected  Phase = "selected"
	PhaseUploading Phase = "uploading"
	PhaseReady     Phase = "ready"
	PhaseNoResults Phase = "no_results"
	PhaseError     Phase = "error"
)

// User facing messages.
const (
	MessageUploadOrSearchFailed = "Failed to upload or search image."
	MessageNoResults            = "No results found."
	MessageDownloadFailed       = "Failed to download the Excel file."
)

// Uploader hosts an image and returns its public URL.
type Uploader interface {
	UploadImage(ctx context.Context, name string, data []byte) (string, error)
}

// Searcher runs a reverse search for a public image URL.
type Searcher interface {
	Search(ctx context.Context, imageURL string) (*models.ReverseSearchResponse, error)
}

// State is a snapshot of a Session.
type State struct {
	Phase    Phase
	FileName string
	ImageURL string
	Results  []models.SearchResult
	Workbook string
	Message  string
}

// Busy reports whether a submit is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseUploading
}

// CanDownload reports whether a workbook is ready to be saved.
func (s State) CanDownload() bool {
	return s.Phase == PhaseReady && s.Workbook != ""
}

// Session holds the state of one user's upload and search.
// Submit runs to completion; there is no cancellation besides ctx.
type Session struct {
	uploader Uploader
	searcher Searcher

	mu    sync.Mutex
	state State
	file  []byte
}

func NewSession(uploader Uploader, searcher Searcher) *Session {
	return &Session{
		uploader: uploader,
		searcher: searcher,
		state:    State{Phase: PhaseIdle},
	}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() State {
	st := s.state
	if s.state.Results != nil {
		st.Results = append([]models.SearchResult(nil), s.state.Results...)
	}
	return st
}

// Select records the chosen file and restarts the cycle.
// It is ignored while a submit is in flight.
func (s *Session) Select(name string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Busy() {
		return false
	}
	s.file = data
	s.state = State{Phase: PhaseSelected, FileName: name}
	return true
}

// Submit uploads the selected file, searches for it and returns the final state.
// Without a selected file, or while busy, it returns the current state unchanged.
func (s *Session) Submit(ctx context.Context) State {
	s.mu.Lock()
	if s.file == nil || s.state.Busy() {
		st := s.snapshot()
		s.mu.Unlock()
		return st
	}
	name, data := s.state.FileName, s.file
	s.state = State{Phase: PhaseUploading, FileName: name}
	s.mu.Unlock()

	imageURL, err := s.uploader.UploadImage(ctx, name, data)
	if err != nil {
		log.Err(err).Str("file", name).Msg("Image upload failed")
		return s.finish(State{Phase: PhaseError, FileName: name, Message: MessageUploadOrSearchFailed})
	}

	s.mu.Lock()
	s.state.ImageURL = imageURL
	s.mu.Unlock()

	resp, err := s.searcher.Search(ctx, imageURL)
	if err != nil {
		log.Err(err).Str("image_url", imageURL).Msg("Reverse search failed")
		return s.finish(State{Phase: PhaseError, FileName: name, ImageURL: imageURL, Message: MessageUploadOrSearchFailed})
	}

	if resp == nil || len(resp.Results) == 0 {
		return s.finish(State{Phase: PhaseNoResults, FileName: name, ImageURL: imageURL, Message: MessageNoResults})
	}

	return s.finish(State{
		Phase:    PhaseReady,
		FileName: name,
		ImageURL: imageURL,
		Results:  models.ToSearchResults(resp.Results),
		Workbook: resp.ExcelBuffer,
	})
}

func (s *Session) finish(st State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return s.snapshot()
}

// Download decodes the workbook and saves it as image_results.xlsx in dir.
// Without a workbook it does nothing and returns an empty path.
func (s *Session) Download(dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Workbook == "" {
		return "", nil
	}

	data, err := services.DecodeWorkbook(s.state.Workbook)
	if err != nil {
		s.failDownload(err)
		return "", err
	}

	target := filepath.Join(dir, services.WorkbookFileName)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		s.failDownload(err)
		return "", err
	}

	log.Info().Str("path", target).Int("bytes", len(data)).Msg("Workbook saved")
	return target, nil
}

func (s *Session) failDownload(err error) {
	log.Err(err).Msg("Workbook download failed")
	s.state.Phase = PhaseError
	s.state.Message = MessageDownloadFailed
}
