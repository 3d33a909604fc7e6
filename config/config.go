package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/utils"
)

var log = logger.New("config")

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig
	SerpAPI SerpAPIConfig
	ImgBB   ImgBBConfig
	Discord DiscordConfig
	Web     WebConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
}

// SerpAPIConfig holds the reverse image search provider settings.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Engine  string
}

// ImgBBConfig holds the image host settings.
type ImgBBConfig struct {
	APIKey  string
	BaseURL string
}

// DiscordConfig holds the Discord bot settings.
type DiscordConfig struct {
	Token         string
	CommandPrefix string
}

// WebConfig holds settings of the upload form and the CLI client.
type WebConfig struct {
	MaxUploadMB       int
	AllowedImageHosts []string
	GatewayURL        string
}

// Load reads the configuration from environment variables.
// Missing API keys are not an error: the provider call fails instead.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		SerpAPI: SerpAPIConfig{
			APIKey:  os.Getenv("SERPAPI_API_KEY"),
			BaseURL: strings.TrimRight(getEnvOrDefault("SERPAPI_BASE_URL", "https://serpapi.com"), "/"),
			Engine:  getEnvOrDefault("SERPAPI_ENGINE", "yandex_images"),
		},
		ImgBB: ImgBBConfig{
			APIKey:  os.Getenv("IMGBB_API_KEY"),
			BaseURL: strings.TrimRight(getEnvOrDefault("IMGBB_BASE_URL", "https://api.imgbb.com"), "/"),
		},
		Discord: DiscordConfig{
			Token:         os.Getenv("DISCORD_BOT_TOKEN"),
			CommandPrefix: getEnvOrDefault("DISCORD_COMMAND_PREFIX", "!revsearch"),
		},
		Web: WebConfig{
			MaxUploadMB:       getEnvIntOrDefault("MAX_UPLOAD_MB", 32),
			AllowedImageHosts: getEnvListOrDefault("ALLOWED_IMAGE_HOSTS", []string{"i.ibb.co"}),
			GatewayURL:        strings.TrimRight(getEnvOrDefault("GATEWAY_URL", "http://localhost:8080"), "/"),
		},
	}

	if cfg.SerpAPI.APIKey == "" {
		log.Warn().Msg("SERPAPI_API_KEY is not set, reverse searches will fail")
	}
	if cfg.ImgBB.APIKey == "" {
		log.Warn().Msg("IMGBB_API_KEY is not set, image uploads will fail")
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := parsePositiveInt(key, value)
	if err != nil {
		log.Warn().Err(err).Str("code", utils.GetCode(err)).Msg("Ignoring invalid setting, using default")
		return defaultValue
	}
	return parsed
}

func parsePositiveInt(key, value string) (int, error) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, utils.NewAppError(utils.CodeConfigInvalid, fmt.Sprintf("%s must be a positive integer, got %q", key, value))
	}
	return parsed, nil
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
