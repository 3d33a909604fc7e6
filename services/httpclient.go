package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"time"

	"github.com/rakshith2001/reverse-search/utils"
)

// UserAgent is sent with every outbound provider request.
const UserAgent = "reverse-search/1.0"

// DefaultHttpClient is shared by the provider clients.
// It has transport level timeouts only; requests are bounded by their context.
var DefaultHttpClient = createHTTPClient()

func createHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = 7 * time.Second
	transport.MaxIdleConnsPerHost = 20
	transport.IdleConnTimeout = 5 * time.Minute

	return &http.Client{
		Transport: transport,
	}
}

// MultiPartFile is one file part of a multipart form.
type MultiPartFile struct {
	FieldName string
	FileName  string
	Content   io.Reader
}

func multiPartFormRequest(ctx context.Context, client *http.Client, url string, files []MultiPartFile) (*http.Response, error) {
	log.Debug().
		Str("url", redactQuery(url)).
		Int("files", len(files)).
		Msg("Sending multipart request")

	var b bytes.Buffer
	writer := multipart.NewWriter(&b)

	for _, file := range files {
		fw, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(fw, file.Content); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	return client.Do(req)
}

// httpErrorFrom builds an HttpError and keeps a short excerpt of the body for logs.
func httpErrorFrom(resp *http.Response) *utils.HttpError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &utils.HttpError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

func closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		log.Err(err).Msg("Failed to close response body")
	}
}
