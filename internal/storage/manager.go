package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"musicbridge/internal/model"
	"musicbridge/pkg/logger"
	"musicbridge/pkg/validator"

	"go.uber.org/zap"
)

// Manager places backend output files under the download directory and
// expires them after the configured TTL.
type Manager struct {
	cfg      *model.StorageConfig
	files    map[string]*model.DownloadedFile
	mu       sync.RWMutex
	quitChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewManager creates a new storage manager
func NewManager(cfg *model.StorageConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		files:    make(map[string]*model.DownloadedFile),
		quitChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start starts the cleanup routine. Without a TTL there is nothing to clean.
func (m *Manager) Start() {
	if m.cfg.FileTTLSeconds <= 0 || m.cfg.CleanupInterval <= 0 {
		logger.Logger.Info("Storage cleanup disabled", zap.Int("file_ttl_seconds", m.cfg.FileTTLSeconds))
		return
	}
	go m.cleanupRoutine()
}

// Stop stops the cleanup routine
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.quitChan) })
}

// EnsureDownloadDir ensures download directory exists
func (m *Manager) EnsureDownloadDir() error {
	return os.MkdirAll(m.cfg.DownloadDir, 0755)
}

// JobDir creates and returns a fresh directory for one download job.
// outputPath is the client supplied output_path; it is confined to the
// download directory.
func (m *Manager) JobDir(outputPath, jobID string) (string, error) {
	dir := filepath.Join(m.cfg.DownloadDir, filepath.FromSlash(validator.SafeRelativePath(outputPath)), jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// SaveFile records file info for tracking and expiry
func (m *Manager) SaveFile(id string, file *model.DownloadedFile) {
	file.ID = id
	file.CreatedAt = m.now()
	if m.cfg.FileTTLSeconds > 0 {
		file.ExpiresAt = file.CreatedAt.Add(time.Duration(m.cfg.FileTTLSeconds) * time.Second)
	}

	m.mu.Lock()
	m.files[id] = file
	m.mu.Unlock()

	logger.Logger.Info("File saved",
		zap.String("id", id),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size))
}

// TrackedCount returns the number of files currently being tracked
func (m *Manager) TrackedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

// ManualCleanup runs one cleanup pass
func (m *Manager) ManualCleanup() {
	m.cleanupExpiredFiles()
}

func (m *Manager) cleanupRoutine() {
	ticker := time.NewTicker(time.Duration(m.cfg.CleanupInterval) * time.Second)
	defer ticker.Stop()

	logger.Logger.Info("Storage cleanup routine started",
		zap.Int("cleanup_interval_seconds", m.cfg.CleanupInterval),
		zap.Int("file_ttl_seconds", m.cfg.FileTTLSeconds))

	for {
		select {
		case <-m.quitChan:
			logger.Logger.Info("Storage cleanup routine stopped")
			return
		case <-ticker.C:
			m.cleanupExpiredFiles()
		}
	}
}

// cleanupExpiredFiles removes files (and their job directories) that have expired
func (m *Manager) cleanupExpiredFiles() {
	now := m.now()

	m.mu.Lock()
	var expired []*model.DownloadedFile
	for id, file := range m.files {
		if !file.ExpiresAt.IsZero() && now.After(file.ExpiresAt) {
			expired = append(expired, file)
			delete(m.files, id)
		}
	}
	remaining := len(m.files)
	m.mu.Unlock()

	errorCount := 0
	for _, file := range expired {
		target := file.FilePath
		if file.Dir != "" {
			target = file.Dir
		}
		if err := os.RemoveAll(target); err != nil {
			logger.Logger.Error("Failed to remove file",
				zap.String("id", file.ID),
				zap.String("path", target),
				zap.Error(err))
			errorCount++
			continue
		}
		logger.Logger.Debug("File removed by cleanup", zap.String("id", file.ID), zap.String("path", target))
	}

	if len(expired) > 0 {
		logger.Logger.Info("Storage cleanup completed",
			zap.Int("deleted_count", len(expired)-errorCount),
			zap.Int("error_count", errorCount),
			zap.Int("remaining_tracked_files", remaining))
	}
}
