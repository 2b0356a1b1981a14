// Command mbget submits one download to a MusicBridge backend and saves the
// result locally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"musicbridge/config"
	"musicbridge/internal/client"
	"musicbridge/internal/model"
	"musicbridge/internal/selector"
	"musicbridge/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 2
	}

	rawURL := flag.String("url", "", "Spotify track, playlist or album URL")
	mode := flag.String("mode", string(model.DefaultMode), "video or audio")
	quality := flag.String("quality", string(model.DefaultQuality), "Highest, 1080px, 720px, 480px, 360px or Lowest")
	endpoint := flag.String("endpoint", cfg.Client.Endpoint, "backend download URL")
	out := flag.String("out", cfg.Client.SaveDir, "directory to save into")
	outputPath := flag.String("output-path", cfg.Client.OutputPath, "output_path sent to the backend")
	verbose := flag.Bool("v", false, "write JSON logs")
	flag.Parse()

	if *verbose {
		if err := logger.Init(&cfg.Logging); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			return 2
		}
		defer logger.Sync()
	}

	sel := selector.New()
	m, err := model.ParseMode(*mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	sel.SetMode(m)
	q, err := model.ParseQuality(*quality)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	sel.SetQuality(q)

	ctrl, err := client.New(client.Options{
		Endpoint:   *endpoint,
		OutputPath: *outputPath,
		TempDir:    cfg.Client.TempDir,
		Saver:      client.NewDirSaver(*out),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status, err := ctrl.Submit(ctx, sel.Form(*rawURL))
	if errors.Is(err, client.ErrInFlight) {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if status.State != model.StateSucceeded {
		fmt.Fprintln(os.Stderr, status.Message)
		return 1
	}
	fmt.Println(status.SavedPath)
	return 0
}
