package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"musicbridge/internal/model"
	"musicbridge/pkg/logger"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
)

const watchURL = "https://www.youtube.com/watch?v="

// Fetcher downloads one YouTube video into dir
type Fetcher interface {
	Fetch(ctx context.Context, videoID, dir string, mode model.Mode, quality model.Quality) error
}

// FormatSelector maps a quality to a yt-dlp format selector. Unknown values
// select the best available stream.
func FormatSelector(q model.Quality) string {
	switch q {
	case model.Quality1080:
		return "bestvideo[height<=1080]+bestaudio/best"
	case model.Quality720:
		return "bestvideo[height<=720]+bestaudio/best"
	case model.Quality480:
		return "bestvideo[height<=480]+bestaudio/best"
	case model.Quality360:
		return "bestvideo[height<=360]+bestaudio/best"
	case model.QualityLowest:
		return "worstvideo+bestaudio/best"
	default:
		return "bestvideo+bestaudio/best"
	}
}

// YtDLPFetcher downloads with the yt-dlp binary
type YtDLPFetcher struct {
	cfg *model.MediaConfig
	sem chan struct{}
}

// NewYtDLPFetcher creates a fetcher running at most cfg.MaxConcurrent
// yt-dlp processes at once.
func NewYtDLPFetcher(cfg *model.MediaConfig) *YtDLPFetcher {
	n := cfg.MaxConcurrent
	if n <= 0 {
		n = 1
	}
	return &YtDLPFetcher{cfg: cfg, sem: make(chan struct{}, n)}
}

func (f *YtDLPFetcher) Fetch(ctx context.Context, videoID, dir string, mode model.Mode, quality model.Quality) error {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-f.sem }()

	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(f.cfg.Timeout)*time.Second)
		defer cancel()
	}

	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		Output(filepath.Join(dir, "%(title)s.%(ext)s"))

	if mode == model.ModeAudio {
		dl = dl.Format("bestaudio/best").
			ExtractAudio().
			AudioFormat(f.cfg.AudioFormat).
			AudioQuality(f.cfg.AudioQuality)
	} else {
		dl = dl.Format(FormatSelector(quality))
	}

	start := time.Now()
	if _, err := dl.Run(ctx, watchURL+videoID); err != nil {
		return fmt.Errorf("yt-dlp %s: %w", videoID, err)
	}

	logger.Logger.Info("Media fetched",
		zap.String("video_id", videoID),
		zap.String("mode", string(mode)),
		zap.String("quality", string(quality)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
