package services

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/rakshith2001/reverse-search/models"
)

const (
	// WorkbookSheetName is the only sheet of an exported workbook.
	WorkbookSheetName = "ImageResults"
	// WorkbookFileName is the name clients save the workbook under.
	WorkbookFileName = "image_results.xlsx"
	// WorkbookMIMEType is the content type of an xlsx file.
	WorkbookMIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WorkbookColumns is the fixed header row of an exported workbook.
var WorkbookColumns = []string{
	"Title",
	"Snippet",
	"Link",
	"Source",
	"Thumbnail Link",
	"Original Image Link",
	"Original Image Height",
	"Original Image Width",
}

// ErrEmptyWorkbook is returned when decoding yields no bytes.
var ErrEmptyWorkbook = errors.New("workbook is empty")

// SpreadsheetEncoder turns image results into a base64 encoded xlsx workbook.
type SpreadsheetEncoder struct{}

func NewSpreadsheetEncoder() *SpreadsheetEncoder {
	return &SpreadsheetEncoder{}
}

// Encode builds the workbook and returns it as base64 text for a JSON payload.
func (e *SpreadsheetEncoder) Encode(results []models.ImageResult) (string, error) {
	data, err := e.Build(results)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Build writes one header row plus one row per result and returns the xlsx bytes.
func (e *SpreadsheetEncoder) Build(results []models.ImageResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Err(err).Msg("Failed to close workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), WorkbookSheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(WorkbookColumns))
	for i, column := range WorkbookColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(WorkbookSheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, result := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := workbookRow(result)
		if err := f.SetSheetRow(WorkbookSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// workbookRow maps a result onto WorkbookColumns. Missing or zero
// original image fields are written as empty strings.
func workbookRow(r models.ImageResult) []interface{} {
	var (
		originalLink   interface{} = ""
		originalHeight interface{} = ""
		originalWidth  interface{} = ""
	)
	if r.OriginalImage != nil {
		originalLink = r.OriginalImage.Link
		if r.OriginalImage.Height != 0 {
			originalHeight = r.OriginalImage.Height
		}
		if r.OriginalImage.Width != 0 {
			originalWidth = r.OriginalImage.Width
		}
	}

	return []interface{}{
		r.Title,
		r.Snippet,
		r.Link,
		r.Source,
		r.Thumbnail,
		originalLink,
		originalHeight,
		originalWidth,
	}
}

// DecodeWorkbook turns the base64 text of an encoded workbook back into file bytes.
func DecodeWorkbook(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode workbook: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return data, nil
}
