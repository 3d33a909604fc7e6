package models

import "encoding/json"

// SerpAPIResponse is the subset of a SerpAPI search response we read.
// ImageResults stays raw so a missing field can be told apart from an empty list.
type SerpAPIResponse struct {
	SearchMetadata struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"search_metadata"`
	ImageResults json.RawMessage `json:"image_results"`
	Error        string          `json:"error,omitempty"`
}

// ImgBBResponse is the response of the ImgBB upload endpoint.
type ImgBBResponse struct {
	Data struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}
