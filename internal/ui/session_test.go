package ui

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"musicbridge/internal/client"
	"musicbridge/internal/model"
	"musicbridge/internal/selector"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestSession(t *testing.T, backend http.HandlerFunc) (*Session, *gin.Engine) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	ctrl, err := client.New(client.Options{
		Endpoint: srv.URL + "/download",
		TempDir:  t.TempDir(),
		Saver:    client.NewDirSaver(t.TempDir()),
	})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	s := NewSession(selector.New(), ctrl)
	r := gin.New()
	s.Register(r)
	return s, r
}

func postForm(r *gin.Engine, values url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ui/download", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func fileBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="song.mp3"`)
	w.Write([]byte("media"))
}

func TestPageRendersDefaults(t *testing.T) {
	_, r := newTestSession(t, fileBackend)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `value="video" checked`) {
		t.Error("Expected video mode preselected")
	}
	if !strings.Contains(body, `value="1080px" selected`) {
		t.Error("Expected 1080px preselected")
	}
	if strings.Contains(body, "disabled") {
		t.Error("Button must be enabled while idle")
	}
}

func TestDownloadSubmitsSelection(t *testing.T) {
	var got model.DownloadRequest
	s, r := newTestSession(t, func(w http.ResponseWriter, req *http.Request) {
		json.NewDecoder(req.Body).Decode(&got)
		fileBackend(w, req)
	})

	w := postForm(r, url.Values{
		"mode":    {"audio"},
		"quality": {"720px"},
		"url":     {" https://open.spotify.com/track/abc "},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("Expected redirect, got %d", w.Code)
	}
	s.Wait()

	if got.Type != "audio" || got.Quality != "720px" || got.URL != "https://open.spotify.com/track/abc" {
		t.Errorf("Unexpected request %+v", got)
	}

	view := s.View()
	if view.State != model.StateSucceeded || view.SavedPath == "" {
		t.Errorf("Expected succeeded view, got %+v", view)
	}
	if view.Mode != model.ModeAudio || view.Quality != model.Quality720 {
		t.Errorf("Selection not kept: %+v", view)
	}
}

func TestDownloadIgnoresUnknownValues(t *testing.T) {
	s, r := newTestSession(t, fileBackend)

	postForm(r, url.Values{"mode": {"karaoke"}, "quality": {"4k"}, "url": {"x"}})
	s.Wait()

	view := s.View()
	if view.Mode != model.DefaultMode || view.Quality != model.DefaultQuality {
		t.Errorf("Expected defaults, got %+v", view)
	}
}

func TestStatusShowsFailure(t *testing.T) {
	s, r := newTestSession(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status":"error","message":"invalid id: nope"}`)
	})

	postForm(r, url.Values{"url": {"nope"}})
	s.Wait()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/status", nil))

	var view StatusView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("Bad status JSON: %v", err)
	}
	if view.State != model.StateFailed || view.Message != client.InvalidURLMessage {
		t.Errorf("Unexpected status %+v", view)
	}
	if view.URL != "nope" {
		t.Errorf("Expected url to be kept, got %q", view.URL)
	}
}

func TestDownloadWhileInFlightIsNoop(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	s, r := newTestSession(t, func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		<-release
		fileBackend(w, req)
	})

	postForm(r, url.Values{"url": {"first"}})
	waitFor(t, func() bool { return s.View().State == model.StateInFlight })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Body.String(), "disabled") {
		t.Error("Expected disabled button while in flight")
	}

	postForm(r, url.Values{"url": {"second"}, "mode": {"audio"}})
	if got := s.View(); got.URL != "first" || got.Mode != model.ModeVideo {
		t.Errorf("Form changed while in flight: %+v", got)
	}

	close(release)
	s.Wait()
	if n := hits.Load(); n != 1 {
		t.Errorf("Expected 1 backend request, got %d", n)
	}
}

func TestDoubleSubmitKeepsFirstForm(t *testing.T) {
	var hits atomic.Int32
	var got model.DownloadRequest
	release := make(chan struct{})
	s, r := newTestSession(t, func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		json.NewDecoder(req.Body).Decode(&got)
		<-release
		fileBackend(w, req)
	})

	postForm(r, url.Values{"mode": {"video"}, "quality": {"720px"}, "url": {"https://open.spotify.com/track/first"}})
	postForm(r, url.Values{"mode": {"audio"}, "url": {"https://open.spotify.com/track/second"}})

	view := s.View()
	if view.Mode != model.ModeVideo || view.Quality != model.Quality720 || view.URL != "https://open.spotify.com/track/first" {
		t.Errorf("Form changed by second submit: %+v", view)
	}

	close(release)
	s.Wait()

	if n := hits.Load(); n != 1 {
		t.Errorf("Expected 1 backend request, got %d", n)
	}
	if got.Type != "video" || got.URL != "https://open.spotify.com/track/first" {
		t.Errorf("Unexpected request %+v", got)
	}
}

func TestWebsocketPushesTransitions(t *testing.T) {
	s, r := newTestSession(t, fileBackend)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ui/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	readState := func() model.RequestState {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var v StatusView
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		return v.State
	}

	if st := readState(); st != model.StateIdle {
		t.Fatalf("Expected idle first, got %s", st)
	}
	waitFor(t, func() bool { return s.hub.Count() == 1 })

	postForm(r, url.Values{"url": {"https://open.spotify.com/track/abc"}})

	if st := readState(); st != model.StateInFlight {
		t.Errorf("Expected in_flight, got %s", st)
	}
	if st := readState(); st != model.StateSucceeded {
		t.Errorf("Expected succeeded, got %s", st)
	}
	s.Wait()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
