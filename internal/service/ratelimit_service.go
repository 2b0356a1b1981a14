package service

import (
	"sync"
	"time"

	"musicbridge/internal/model"
	"musicbridge/pkg/logger"

	"go.uber.org/zap"
)

// rateWindow counts requests from one IP in the current minute
type rateWindow struct {
	requests int
	resetAt  time.Time
}

// RateLimitService applies a fixed one-minute request budget per IP
type RateLimitService struct {
	cfg      *model.RateLimitConfig
	windows  map[string]*rateWindow
	mu       sync.Mutex
	quitChan chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(cfg *model.RateLimitConfig) *RateLimitService {
	rls := &RateLimitService{
		cfg:      cfg,
		windows:  make(map[string]*rateWindow),
		quitChan: make(chan struct{}),
		now:      time.Now,
	}

	if cfg.Enabled && cfg.CleanupInterval > 0 {
		go rls.cleanupRoutine()
	}

	return rls
}

// IsAllowed records a request from ip and reports whether it fits the budget
func (rls *RateLimitService) IsAllowed(ip string) bool {
	if !rls.cfg.Enabled {
		return true
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	now := rls.now()
	w, ok := rls.windows[ip]
	if !ok || now.After(w.resetAt) {
		rls.windows[ip] = &rateWindow{requests: 1, resetAt: now.Add(time.Minute)}
		return true
	}

	w.requests++
	if w.requests > rls.cfg.RequestsPerMinute {
		logger.Logger.Warn("Rate limit exceeded",
			zap.String("ip", ip),
			zap.Int("requests", w.requests),
			zap.Int("limit", rls.cfg.RequestsPerMinute))
		return false
	}
	return true
}

// GetRemaining returns remaining requests for ip in the current window, -1 when unlimited
func (rls *RateLimitService) GetRemaining(ip string) int {
	if !rls.cfg.Enabled {
		return -1
	}

	rls.mu.Lock()
	defer rls.mu.Unlock()

	w, ok := rls.windows[ip]
	if !ok || rls.now().After(w.resetAt) {
		return rls.cfg.RequestsPerMinute
	}
	if remaining := rls.cfg.RequestsPerMinute - w.requests; remaining > 0 {
		return remaining
	}
	return 0
}

func (rls *RateLimitService) cleanupRoutine() {
	ticker := time.NewTicker(time.Duration(rls.cfg.CleanupInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-rls.quitChan:
			logger.Logger.Info("Rate limit service stopped")
			return
		case <-ticker.C:
			rls.cleanup()
		}
	}
}

// cleanup drops windows that ended long ago
func (rls *RateLimitService) cleanup() {
	rls.mu.Lock()
	defer rls.mu.Unlock()

	now := rls.now()
	removed := 0
	for ip, w := range rls.windows {
		if now.Sub(w.resetAt) > time.Hour {
			delete(rls.windows, ip)
			removed++
		}
	}

	if removed > 0 {
		logger.Logger.Debug("Rate limit entries cleaned up", zap.Int("removed", removed), zap.Int("remaining", len(rls.windows)))
	}
}

// Stop stops the rate limit service
func (rls *RateLimitService) Stop() {
	rls.stopOnce.Do(func() { close(rls.quitChan) })
}
