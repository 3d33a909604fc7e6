package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/utils"
)

const searchFailedMessage = "Failed to process image search"

// ReverseSearchHandler runs a reverse search for the image URL in the JSON body.
//
// Every failure, including "provider found nothing", answers 500 with a fixed
// message. The cause is only logged.
func (c *Controller) ReverseSearchHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var req models.ReverseSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest := utils.InvalidInput("Invalid JSON format", err)
		log.Warn().Err(badRequest).
			Str("request_id", requestID).
			Str("code", badRequest.Code).
			Msg("Invalid reverse search request body")
		writeError(w, http.StatusBadRequest, badRequest.Message)
		return
	}

	imageURL := strings.TrimSpace(req.ImageURL)
	log.Info().Str("request_id", requestID).Str("image_url", imageURL).Msg("Reverse search request")

	resp, err := c.gateway.Search(r.Context(), imageURL)
	if err != nil {
		log.Err(err).
			Str("request_id", requestID).
			Str("code", utils.GetCode(err)).
			Msg("Reverse search failed")
		writeError(w, http.StatusInternalServerError, searchFailedMessage)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
