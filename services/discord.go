package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/models"
)

const (
	discordMessageLimit = 2000
	discordResultLimit  = 10
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// DiscordService lets users run reverse searches from Discord.
type DiscordService struct {
	session       *discordgo.Session
	gateway       ImageSearchGateway
	commandPrefix string
	enabled       bool
	startTime     time.Time
}

// NewDiscordService creates a new Discord service instance
func NewDiscordService(cfg config.DiscordConfig, gateway ImageSearchGateway) *DiscordService {
	commandPrefix := strings.TrimSpace(cfg.CommandPrefix)
	if commandPrefix == "" {
		commandPrefix = "!revsearch"
	}

	service := &DiscordService{
		gateway:       gateway,
		commandPrefix: commandPrefix,
		startTime:     time.Now(),
	}

	if cfg.Token == "" {
		log.Info().Msg("Discord bot disabled: DISCORD_BOT_TOKEN environment variable not set")
		return service
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Err(err).Msg("Error creating Discord session")
		return service
	}

	service.session = session

	session.AddHandler(func(s *discordgo.Session, event *discordgo.Ready) {
		log.Info().
			Str("user", event.User.Username).
			Int("guilds", len(event.Guilds)).
			Msg("Discord bot is online")
	})
	session.AddHandler(service.messageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	service.enabled = true
	log.Info().Str("prefix", commandPrefix).Msg("Discord service initialized")

	return service
}

// Start opens the Discord websocket connection
func (d *DiscordService) Start() error {
	if !d.enabled {
		return fmt.Errorf("discord service not enabled (missing bot token)")
	}

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("error opening Discord connection: %w", err)
	}

	log.Info().Msgf("Discord bot started, use '%s <image>' in Discord", d.commandPrefix)
	return nil
}

// Stop closes the Discord bot connection
func (d *DiscordService) Stop() error {
	if d.session != nil {
		return d.session.Close()
	}
	return nil
}

func (d *DiscordService) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	imageURL, matched := d.parseCommand(m.Content, m.Attachments)
	if !matched {
		return
	}
	if imageURL == "" {
		d.sendMessage(s, m.ChannelID, fmt.Sprintf("Attach an image or add an image URL after `%s`", d.commandPrefix))
		return
	}

	requestID := uuid.NewString()
	log.Info().
		Str("request_id", requestID).
		Str("user", m.Author.Username).
		Str("channel", m.ChannelID).
		Str("image_url", imageURL).
		Msg("Discord reverse search")

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		log.Debug().Err(err).Msg("Failed to send typing indicator")
	}

	resp, err := d.gateway.Search(context.Background(), imageURL)
	if err != nil {
		log.Err(err).Str("request_id", requestID).Msg("Discord reverse search failed")
		d.sendMessage(s, m.ChannelID, "Failed to process image search.")
		return
	}

	d.sendMessage(s, m.ChannelID, formatResults(resp.Results, discordResultLimit))
	if len(resp.Results) == 0 {
		return
	}

	workbook, err := DecodeWorkbook(resp.ExcelBuffer)
	if err != nil {
		log.Err(err).Str("request_id", requestID).Msg("Failed to decode workbook")
		return
	}

	_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{
			{
				Name:        WorkbookFileName,
				ContentType: WorkbookMIMEType,
				Reader:      bytes.NewReader(workbook),
			},
		},
	})
	if err != nil {
		log.Err(err).Str("request_id", requestID).Msg("Error sending workbook to Discord")
	}
}

// parseCommand reports whether content is a search command and which image it refers to.
// An image attachment wins over a URL argument.
func (d *DiscordService) parseCommand(content string, attachments []*discordgo.MessageAttachment) (string, bool) {
	content = strings.TrimSpace(content)
	if content != d.commandPrefix && !strings.HasPrefix(content, d.commandPrefix+" ") {
		return "", false
	}

	for _, attachment := range attachments {
		if attachment == nil {
			continue
		}
		if strings.HasPrefix(attachment.ContentType, "image/") || hasImageExtension(attachment.Filename) {
			return attachment.URL, true
		}
	}

	arg := strings.TrimSpace(strings.TrimPrefix(content, d.commandPrefix))
	if fields := strings.Fields(arg); len(fields) > 0 {
		arg = strings.Trim(fields[0], "<>")
		if u, err := url.Parse(arg); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
			return arg, true
		}
	}

	return "", true
}

func hasImageExtension(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, candidate := range imageExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// formatResults lists up to limit result titles with their links.
func formatResults(results []models.ImageResult, limit int) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results", len(results))
	if len(results) > limit {
		fmt.Fprintf(&b, " (showing %d)", limit)
	}
	b.WriteString(":\n")

	for i, result := range results {
		if i >= limit {
			break
		}
		title := strings.TrimSpace(result.Title)
		if title == "" {
			title = result.Source
		}
		fmt.Fprintf(&b, "%d. %s - <%s>\n", i+1, title, result.Link)
	}

	return strings.TrimRight(b.String(), "\n")
}

// sendMessage sends a message to Discord, handling length limits
func (d *DiscordService) sendMessage(s *discordgo.Session, channelID, message string) {
	if len(message) <= discordMessageLimit {
		if _, err := s.ChannelMessageSend(channelID, message); err != nil {
			log.Err(err).Msg("Error sending Discord message")
		}
		return
	}

	chunks := splitMessage(message, 1900)
	for i, chunk := range chunks {
		if i > 0 {
			chunk = fmt.Sprintf("...continued:\n%s", chunk)
		}
		if i < len(chunks)-1 {
			chunk = chunk + "\n..."
		}

		if _, err := s.ChannelMessageSend(channelID, chunk); err != nil {
			log.Err(err).Msg("Error sending Discord message chunk")
		}

		// stay under the per-channel rate limit
		time.Sleep(200 * time.Millisecond)
	}
}

// splitMessage splits a message into chunks, preferring line then word boundaries
func splitMessage(message string, maxLength int) []string {
	if len(message) <= maxLength {
		return []string{message}
	}

	var chunks []string
	for len(message) > maxLength {
		splitIndex := maxLength
		if newline := strings.LastIndex(message[:maxLength], "\n"); newline > maxLength/2 {
			splitIndex = newline
		} else if space := strings.LastIndex(message[:maxLength], " "); space > maxLength/2 {
			splitIndex = space
		}

		chunks = append(chunks, message[:splitIndex])
		message = strings.TrimLeft(message[splitIndex:], " \n")
	}

	if len(message) > 0 {
		chunks = append(chunks, message)
	}

	return chunks
}

// IsEnabled returns whether the Discord service is enabled
func (d *DiscordService) IsEnabled() bool {
	return d.enabled
}

// GetStatus returns the current status of the Discord service
func (d *DiscordService) GetStatus() models.DiscordStatus {
	status := models.DiscordStatus{
		Enabled:       d.enabled,
		CommandPrefix: d.commandPrefix,
		Uptime:        time.Since(d.startTime).Round(time.Second).String(),
	}

	switch {
	case d.enabled && d.session != nil && d.session.State != nil && d.session.State.User != nil:
		status.Status = "connected"
		status.User = &models.DiscordUser{
			ID:       d.session.State.User.ID,
			Username: d.session.State.User.Username,
			Bot:      d.session.State.User.Bot,
		}
		status.Guilds = len(d.session.State.Guilds)
	case d.enabled:
		status.Status = "initialized_not_started"
	default:
		status.Status = "disabled"
		status.Note = "Set DISCORD_BOT_TOKEN environment variable to enable"
	}

	return status
}
