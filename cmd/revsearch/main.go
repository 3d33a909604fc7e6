// Command revsearch uploads a local image, reverse searches it through a
// running gateway and saves the results workbook.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/rakshith2001/reverse-search/client"
	"github.com/rakshith2001/reverse-search/config"
	"github.com/rakshith2001/reverse-search/logger"
	"github.com/rakshith2001/reverse-search/services"
	"github.com/rakshith2001/reverse-search/utils"
)

type cli struct {
	Image      string `arg:"" name:"image" help:"Image file to search for." type:"existingfile"`
	Gateway    string `help:"Base URL of the reverse search gateway (overrides GATEWAY_URL)."`
	Out        string `help:"Directory to save image_results.xlsx in." default:"." type:"path"`
	JSON       bool   `help:"Print results as JSON."`
	NoDownload bool   `help:"Do not save the workbook."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if err := utils.LoadEnvWithFallback(); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
	}
	logger.Configure()

	var opts cli
	exited, exitCode := false, 0
	parser, err := kong.New(&opts,
		kong.Name("revsearch"),
		kong.Description("Reverse image search for a local file."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) {
			exited, exitCode = true, code
		}),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	_, err = parser.Parse(args)
	if exited {
		return exitCode
	}
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return search(ctx, opts, config.Load(), stdout, stderr)
}

func search(ctx context.Context, opts cli, cfg *config.Config, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(opts.Image)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())
		return 1
	}

	gatewayURL := cfg.Web.GatewayURL
	if opts.Gateway != "" {
		gatewayURL = opts.Gateway
	}

	session := client.NewSession(
		services.NewImgBBService(cfg.ImgBB, nil),
		client.NewGatewayClient(gatewayURL, nil),
	)
	session.Select(filepath.Base(opts.Image), data)
	state := session.Submit(ctx)

	switch state.Phase {
	case client.PhaseError:
		_, _ = fmt.Fprintln(stderr, state.Message)
		return 1
	case client.PhaseNoResults:
		if opts.JSON {
			_, _ = fmt.Fprintln(stdout, "[]")
		} else {
			_, _ = fmt.Fprintln(stdout, state.Message)
		}
		return 0
	}

	if opts.JSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state.Results); err != nil {
			_, _ = fmt.Fprintln(stderr, err.Error())
			return 1
		}
	} else {
		_, _ = fmt.Fprintf(stdout, "Image: %s\n", state.ImageURL)
		for i, result := range state.Results {
			_, _ = fmt.Fprintf(stdout, "%d\t%s\t%s\n", i+1, result.Title, result.Link)
		}
	}

	if opts.NoDownload {
		return 0
	}
	path, err := session.Download(opts.Out)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, client.MessageDownloadFailed)
		return 1
	}
	if path != "" {
		_, _ = fmt.Fprintf(stderr, "Saved %s\n", path)
	}
	return 0
}
