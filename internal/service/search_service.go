package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicbridge/internal/cache"
	"musicbridge/pkg/logger"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// searchSuffix steers YouTube towards the official upload of a song
const searchSuffix = " official full video song"

// ErrNoResults is returned when a search finds no video
var ErrNoResults = errors.New("no matching video found")

// Searcher finds the YouTube video id for a track query
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// YouTubeSearcher searches with the YouTube Data API v3
type YouTubeSearcher struct {
	svc *youtube.Service
}

// NewYouTubeSearcher creates a searcher using apiKey. Extra options are
// appended, e.g. option.WithEndpoint to target another server.
func NewYouTubeSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube client: %w", err)
	}
	return &YouTubeSearcher{svc: svc}, nil
}

// Search returns the id of the top video result for query
func (s *YouTubeSearcher) Search(ctx context.Context, query string) (string, error) {
	resp, err := s.svc.Search.List([]string{"snippet"}).
		Q(query + searchSuffix).
		MaxResults(1).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube search %q: %w", query, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil || resp.Items[0].Id.VideoId == "" {
		return "", fmt.Errorf("youtube search %q: %w", query, ErrNoResults)
	}
	return resp.Items[0].Id.VideoId, nil
}

// YtDLPSearcher searches through yt-dlp's ytsearch extractor and needs no
// API key.
type YtDLPSearcher struct{}

// Search returns the id of the first ytsearch hit for query
func (YtDLPSearcher) Search(ctx context.Context, query string) (string, error) {
	res, err := ytdlp.New().
		SkipDownload().
		NoPlaylist().
		Print("id").
		Run(ctx, "ytsearch1:"+query+searchSuffix)
	if err != nil {
		return "", fmt.Errorf("yt-dlp search %q: %w", query, err)
	}
	id := firstLine(res.Stdout)
	if id == "" {
		return "", fmt.Errorf("yt-dlp search %q: %w", query, ErrNoResults)
	}
	return id, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// CachedSearcher memoizes another Searcher. Cache failures are logged and
// otherwise ignored.
type CachedSearcher struct {
	next  Searcher
	store cache.Store
}

// NewCachedSearcher wraps next with store
func NewCachedSearcher(next Searcher, store cache.Store) *CachedSearcher {
	return &CachedSearcher{next: next, store: store}
}

// Search consults the cache before the wrapped searcher
func (s *CachedSearcher) Search(ctx context.Context, query string) (string, error) {
	id, err := s.store.GetVideoID(ctx, query)
	if err == nil {
		logger.Logger.Debug("Video id cache hit", zap.String("query", query), zap.String("video_id", id))
		return id, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		logger.Logger.Warn("Video id cache read failed", zap.String("query", query), zap.Error(err))
	}

	id, err = s.next.Search(ctx, query)
	if err != nil {
		return "", err
	}

	if err := s.store.SetVideoID(ctx, query, id); err != nil {
		logger.Logger.Warn("Video id cache write failed", zap.String("query", query), zap.Error(err))
	}
	return id, nil
}
