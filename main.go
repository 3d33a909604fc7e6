package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/cors"

	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/controllers"
	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/services"
	"github.com/rakshith2001/reverse-search/utils"
)

var log = logger.New("main")

type serverCLI struct {
	Port    string `help:"Port to listen on (overrides PORT)."`
	Discord bool   `help:"Start the Discord bot when DISCORD_BOT_TOKEN is set." default:"true" negatable:""`
}

// Server wires the controller routes behind CORS
type Server struct {
	port       string
	controller *controllers.Controller
	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(port string, controller *controllers.Controller) *Server {
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	s := &Server{
		port:       port,
		controller: controller,
	}
	s.httpServer = &http.Server{
		Addr:              port,
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(controllers.NewRouter(s.controller))
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Info().Str("addr", s.port).Msgf("Visit http://localhost%s to search an image", s.port)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func main() {
	if err := utils.LoadEnvWithFallback(); err != nil {
		log.Warn().Err(err).Msg("Could not load .env file")
	}
	logger.Configure()

	var cli serverCLI
	kong.Parse(&cli,
		kong.Name("reverse-search"),
		kong.Description("Reverse image search gateway with upload form and Discord bot."),
		kong.UsageOnError(),
	)

	cfg := config.Load()
	if cli.Port != "" {
		cfg.Server.Port = cli.Port
	}

	searchService := services.NewSearchService(cfg.SerpAPI, nil)
	gateway := services.NewGateway(searchService, services.NewSpreadsheetEncoder())
	uploader := services.NewImgBBService(cfg.ImgBB, nil)
	discordService := services.NewDiscordService(cfg.Discord, gateway)

	controller := controllers.NewController(gateway, uploader, discordService, cfg.Web)
	if err := controller.StartServices(cli.Discord); err != nil {
		log.Warn().Err(err).Msg("Continuing without Discord bot")
	}

	server := NewServer(cfg.Server.Port, controller)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Err(err).Msg("Server shutdown failed")
	}
	if err := controller.StopServices(); err != nil {
		log.Err(err).Msg("Failed to stop services")
	}
}
