package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"musicbridge/internal/model"
	"musicbridge/internal/storage"
	"musicbridge/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for a download type other than video or audio
var ErrUnsupportedType = errors.New("unsupported download type")

// Default request values for omitted fields
const (
	defaultType    = model.ModeVideo
	defaultQuality = model.Quality1080
)

// TrackResolver resolves a Spotify URL into tracks
type TrackResolver interface {
	Resolve(ctx context.Context, rawURL string) (*Collection, error)
}

// DownloadService turns a download request into a single file on disk
type DownloadService struct {
	resolver TrackResolver
	searcher Searcher
	fetcher  Fetcher
	storage  *storage.Manager
}

// NewDownloadService creates a new download service
func NewDownloadService(resolver TrackResolver, searcher Searcher, fetcher Fetcher, sm *storage.Manager) *DownloadService {
	return &DownloadService{
		resolver: resolver,
		searcher: searcher,
		fetcher:  fetcher,
		storage:  sm,
	}
}

// Download resolves req.URL, fetches every track and returns the produced
// file: the media file itself for a single track, a zip archive otherwise.
func (s *DownloadService) Download(ctx context.Context, req *model.DownloadRequest) (*model.DownloadedFile, error) {
	mode := defaultType
	if req.Type != "" {
		m, err := model.ParseMode(req.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, req.Type)
		}
		mode = m
	}

	quality := defaultQuality
	if req.Quality != "" {
		q, err := model.ParseQuality(req.Quality)
		if err != nil {
			logger.Logger.Warn("Unknown quality, using highest", zap.String("quality", req.Quality))
			q = model.QualityHighest
		}
		quality = q
	}

	col, err := s.resolver.Resolve(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	dir, err := s.storage.JobDir(req.OutputPath, jobID)
	if err != nil {
		return nil, err
	}

	if err := s.fetchAll(ctx, col.Tracks, dir, mode, quality); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	file, err := s.collect(col, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	file.URL = req.URL
	file.Dir = dir

	s.storage.SaveFile(jobID, file)
	return file, nil
}

// fetchAll downloads tracks one after another; the first failure aborts the job.
func (s *DownloadService) fetchAll(ctx context.Context, tracks []model.Track, dir string, mode model.Mode, quality model.Quality) error {
	for i, t := range tracks {
		videoID, err := s.searcher.Search(ctx, t.Query())
		if err != nil {
			return err
		}

		logger.Logger.Debug("Fetching track",
			zap.Int("index", i+1),
			zap.Int("total", len(tracks)),
			zap.String("track", t.Query()),
			zap.String("video_id", videoID))

		if err := s.fetcher.Fetch(ctx, videoID, dir, mode, quality); err != nil {
			return err
		}
	}
	return nil
}

func (s *DownloadService) collect(col *Collection, dir string) (*model.DownloadedFile, error) {
	files, err := listOutputs(dir)
	if err != nil {
		return nil, fmt.Errorf("list job output: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("download produced no files")
	}

	path := files[0]
	if len(files) > 1 {
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.zip", col.Kind, col.ID))
		if err := zipFiles(files, path); err != nil {
			return nil, fmt.Errorf("create archive: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &model.DownloadedFile{
		Filename: filepath.Base(path),
		FilePath: path,
		Size:     info.Size(),
	}, nil
}
