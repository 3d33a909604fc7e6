package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rakshith2001/reverse-search/client"
	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/models"
	"github.com/rakshith2001/reverse-search/services"
	"github.com/rakshith2001/reverse-search/views"
)

var log = logger.New("controllers")

// Controller handles the HTTP endpoints and owns the background services.
type Controller struct {
	gateway        services.ImageSearchGateway
	uploader       client.Uploader
	discordService *services.DiscordService
	web            config.WebConfig
}

// NewController creates a new controller instance. discordService may be nil.
func NewController(gateway services.ImageSearchGateway, uploader client.Uploader, discordService *services.DiscordService, web config.WebConfig) *Controller {
	if web.MaxUploadMB <= 0 {
		web.MaxUploadMB = 32
	}
	return &Controller{
		gateway:        gateway,
		uploader:       uploader,
		discordService: discordService,
		web:            web,
	}
}

// StartServices starts all background services (Discord bot, etc.)
func (c *Controller) StartServices(enableDiscord bool) error {
	switch {
	case !enableDiscord:
		log.Info().Msg("Discord service disabled via command line flag")
	case c.discordService == nil || !c.discordService.IsEnabled():
		log.Warn().Msg("Discord service requested but not properly configured (missing DISCORD_BOT_TOKEN)")
	default:
		if err := c.discordService.Start(); err != nil {
			log.Err(err).Msg("Failed to start Discord service")
			return err
		}
	}
	return nil
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

// renderTemplate renders one of the embedded HTML templates with data
func (c *Controller) renderTemplate(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := views.Templates.ExecuteTemplate(w, name, data); err != nil {
		log.Err(err).Str("template", name).Msg("Error executing template")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: message})
}
