package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registers every endpoint of the controller.
func NewRouter(c *Controller) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", c.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/upload", c.UploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/download", c.DownloadHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/reverse-search", c.ReverseSearchHandler).Methods(http.MethodPost)
	router.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)

	return router
}
