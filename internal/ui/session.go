// Package ui serves the browser download form.
package ui

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"

	"musicbridge/internal/client"
	"musicbridge/internal/model"
	"musicbridge/internal/selector"
	"musicbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

//go:embed page.html
var pageFS embed.FS

var pageTemplate = template.Must(template.ParseFS(pageFS, "page.html"))

// StatusView is the JSON and template view of a session
type StatusView struct {
	State     model.RequestState `json:"state"`
	Message   string             `json:"message,omitempty"`
	SavedPath string             `json:"saved_path,omitempty"`
	Mode      model.Mode         `json:"mode"`
	Quality   model.Quality      `json:"quality"`
	URL       string             `json:"url"`
}

type pageData struct {
	StatusView
	Qualities []model.Quality
}

// Session binds one form (selector and URL) to one controller
type Session struct {
	selector   *selector.Selector
	controller *client.Controller
	hub        *Hub
	log        *zap.Logger

	mu         sync.RWMutex
	url        string
	submitting bool

	wg sync.WaitGroup
}

// NewSession creates a session and subscribes it to controller updates.
// It replaces any update callback already set on controller.
func NewSession(sel *selector.Selector, controller *client.Controller) *Session {
	s := &Session{
		selector:   sel,
		controller: controller,
		hub:        NewHub(),
		log:        logger.Named("ui"),
	}
	controller.SetUpdateCallback(func(st model.RequestStatus) {
		s.hub.Broadcast(s.view(st))
	})
	return s
}

// Register mounts the form routes on r
func (s *Session) Register(r gin.IRoutes) {
	r.GET("/", s.Page)
	r.POST("/ui/download", s.Download)
	r.GET("/ui/status", s.Status)
	r.GET("/ui/ws", s.WS)
}

// View returns the current form and status
func (s *Session) View() StatusView {
	return s.view(s.controller.Status())
}

func (s *Session) view(st model.RequestStatus) StatusView {
	s.mu.RLock()
	url := s.url
	s.mu.RUnlock()

	return StatusView{
		State:     st.State,
		Message:   st.Message,
		SavedPath: st.SavedPath,
		Mode:      s.selector.Mode(),
		Quality:   s.selector.Quality(),
		URL:       url,
	}
}

// Page renders the form
func (s *Session) Page(c *gin.Context) {
	c.Render(http.StatusOK, render.HTML{
		Template: pageTemplate,
		Name:     "page",
		Data:     pageData{StatusView: s.View(), Qualities: model.Qualities},
	})
}

// Download applies the posted fields and starts a submission. A post while
// a submission is pending changes nothing.
func (s *Session) Download(c *gin.Context) {
	form, ok := s.claim(c.PostForm("mode"), c.PostForm("quality"), c.PostForm("url"))
	if !ok {
		s.log.Debug("Ignoring submit while in flight")
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		if _, err := s.controller.Submit(ctx, form); errors.Is(err, client.ErrInFlight) {
			s.log.Debug("Concurrent submit dropped", zap.String("url", form.URL))
		}
	}()

	c.Redirect(http.StatusSeeOther, "/")
}

// claim applies the fields and marks the session as submitting in one step.
// It reports false, leaving the form untouched, while a submission is pending.
func (s *Session) claim(mode, quality, url string) (model.FormState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting || s.controller.Status().IsActive() {
		return model.FormState{}, false
	}
	s.submitting = true

	if m, err := model.ParseMode(mode); err == nil {
		s.selector.SetMode(m)
	}
	if q, err := model.ParseQuality(quality); err == nil {
		s.selector.SetQuality(q)
	}
	s.url = strings.TrimSpace(url)

	return s.selector.Form(s.url), true
}

func (s *Session) release() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// Status answers with the current StatusView
func (s *Session) Status(c *gin.Context) {
	c.JSON(http.StatusOK, s.View())
}

// WS streams a StatusView on every status transition
func (s *Session) WS(c *gin.Context) {
	s.hub.Serve(c, s.View())
}

// Wait blocks until every submission started by Download has finished
func (s *Session) Wait() {
	s.wg.Wait()
}
