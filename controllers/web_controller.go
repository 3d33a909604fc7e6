package controllers

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rakshith2001/reverse-search/client"
	"github.com/rakshith2001/reverse-search/services"
)

const multipartOverhead = 1 << 20

type indexPage struct {
	MaxUploadMB int
	Error       string
}

type resultsPage struct {
	State       client.State
	ShowPreview bool
}

// IndexHandler serves the upload form
func (c *Controller) IndexHandler(w http.ResponseWriter, r *http.Request) {
	c.renderTemplate(w, http.StatusOK, "index.html", indexPage{MaxUploadMB: c.web.MaxUploadMB})
}

// UploadHandler hosts the submitted image, searches for it and renders the results page.
func (c *Controller) UploadHandler(w http.ResponseWriter, r *http.Request) {
	maxFileBytes := int64(c.web.MaxUploadMB) << 20
	// the body also carries the multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes+multipartOverhead)

	if err := r.ParseMultipartForm(maxFileBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > maxFileBytes+multipartOverhead {
			c.renderTooLarge(w)
			return
		}
		c.renderIndexError(w, http.StatusBadRequest, "Please choose an image to upload.")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		c.renderIndexError(w, http.StatusBadRequest, "Please choose an image to upload.")
		return
	}
	defer file.Close()

	if header.Size > maxFileBytes {
		c.renderTooLarge(w)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		c.renderIndexError(w, http.StatusBadRequest, "Please choose an image to upload.")
		return
	}

	session := client.NewSession(c.uploader, c.gateway)
	session.Select(header.Filename, data)
	state := session.Submit(r.Context())

	log.Info().
		Str("file", header.Filename).
		Str("phase", string(state.Phase)).
		Int("results", len(state.Results)).
		Msg("Upload handled")

	c.renderTemplate(w, http.StatusOK, "results.html", resultsPage{
		State:       state,
		ShowPreview: c.previewAllowed(state.ImageURL),
	})
}

func (c *Controller) renderTooLarge(w http.ResponseWriter) {
	c.renderIndexError(w, http.StatusRequestEntityTooLarge,
		"Image is too large (limit "+strconv.Itoa(c.web.MaxUploadMB)+" MB).")
}

func (c *Controller) renderIndexError(w http.ResponseWriter, status int, message string) {
	c.renderTemplate(w, status, "index.html", indexPage{MaxUploadMB: c.web.MaxUploadMB, Error: message})
}

// previewAllowed reports whether the image may be embedded in the page.
// Only hosts on the allow list are rendered inline.
func (c *Controller) previewAllowed(imageURL string) bool {
	if imageURL == "" {
		return false
	}
	u, err := url.Parse(imageURL)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range c.web.AllowedImageHosts {
		if host == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}

// DownloadHandler turns the base64 workbook posted by the results page into an xlsx attachment.
func (c *Controller) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, client.MessageDownloadFailed, http.StatusBadRequest)
		return
	}

	data, err := services.DecodeWorkbook(r.FormValue("excelBuffer"))
	if err != nil {
		log.Warn().Err(err).Msg("Workbook download failed")
		http.Error(w, client.MessageDownloadFailed, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", services.WorkbookMIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.WorkbookFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Err(err).Msg("Failed to write workbook")
	}
}

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"component": "reverse-image-search-gateway",
		"endpoints": []string{"/", "/upload", "/download", "/api/reverse-search", "/health"},
	}
	if reporter, ok := c.gateway.(interface{ GetStatus() map[string]interface{} }); ok {
		health["gateway"] = reporter.GetStatus()
	}
	if reporter, ok := c.uploader.(interface{ GetStatus() map[string]interface{} }); ok {
		health["image_host"] = reporter.GetStatus()
	}
	if c.discordService != nil {
		health["discord"] = c.discordService.GetStatus()
	}

	writeJSON(w, http.StatusOK, health)
}
