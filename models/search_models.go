package models

import "encoding/json"

// OriginalImage describes the full size image behind a result.
type OriginalImage struct {
	Link   string `json:"link"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// ImageResult is one visually similar image reported by the reverse search provider.
//
// Decoding is lenient: a field of an unexpected type is left empty instead of
// failing the whole list. A decoded result keeps the provider's object and
// encodes back to it byte for byte, unknown fields included.
type ImageResult struct {
	Title         string         `json:"title"`
	Snippet       string         `json:"snippet"`
	Link          string         `json:"link"`
	Source        string         `json:"source"`
	Thumbnail     string         `json:"thumbnail"`
	OriginalImage *OriginalImage `json:"original_image,omitempty"`

	raw json.RawMessage
}

func (r *ImageResult) UnmarshalJSON(data []byte) error {
	*r = ImageResult{raw: append(json.RawMessage(nil), data...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// not an object; forwarded as is
		return nil
	}

	r.Title = jsonString(fields["title"])
	r.Snippet = jsonString(fields["snippet"])
	r.Link = jsonString(fields["link"])
	r.Source = jsonString(fields["source"])
	r.Thumbnail = jsonString(fields["thumbnail"])
	r.OriginalImage = decodeOriginalImage(fields["original_image"])
	return nil
}

func (r ImageResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	type plain ImageResult
	return json.Marshal(plain(r))
}

func decodeOriginalImage(data json.RawMessage) *OriginalImage {
	var fields map[string]json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &fields) != nil || fields == nil {
		return nil
	}
	return &OriginalImage{
		Link:   jsonString(fields["link"]),
		Height: jsonInt(fields["height"]),
		Width:  jsonInt(fields["width"]),
	}
}

func jsonString(data json.RawMessage) string {
	var s string
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return ""
	}
	return s
}

// jsonInt accepts a number or a numeric string; anything else is 0.
func jsonInt(data json.RawMessage) int {
	var n json.Number
	if len(data) == 0 || json.Unmarshal(data, &n) != nil {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int(f)
}

// SearchResult is the part of an ImageResult shown on screen.
type SearchResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ToSearchResult narrows an ImageResult for display.
func (r ImageResult) ToSearchResult() SearchResult {
	return SearchResult{
		Title: r.Title,
		Link:  r.Link,
	}
}

// ToSearchResults narrows a whole result list for display.
func ToSearchResults(results []ImageResult) []SearchResult {
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, r.ToSearchResult())
	}
	return out
}

// ReverseSearchRequest is the body of POST /api/reverse-search.
type ReverseSearchRequest struct {
	ImageURL string `json:"imageUrl"`
}

// ReverseSearchResponse is the successful answer of the gateway.
// ExcelBuffer always holds the workbook built from Results.
type ReverseSearchResponse struct {
	Results     []ImageResult `json:"results"`
	ExcelBuffer string        `json:"excelBuffer"`
}
