package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"musicbridge/internal/model"
)

type recordingSaver struct {
	mu    sync.Mutex
	calls int
	name  string
	data  string
	err   error
}

func (s *recordingSaver) Save(name string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.name = name
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.data = string(b)
	if s.err != nil {
		return "", s.err
	}
	return "/saved/" + name, nil
}

func newTestController(t *testing.T, endpoint string, saver Saver) *Controller {
	t.Helper()
	c, err := New(Options{
		Endpoint:   endpoint,
		OutputPath: "C:/VideoSongsOutput",
		TempDir:    t.TempDir(),
		Saver:      saver,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func jsonError(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	io.WriteString(w, body)
}

func TestSubmitSuccessSavesOnce(t *testing.T) {
	var got model.DownloadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		io.WriteString(w, "binary-media")
	}))
	defer srv.Close()

	saver := &recordingSaver{}
	c := newTestController(t, srv.URL, saver)

	var transitions []model.RequestState
	c.SetUpdateCallback(func(s model.RequestStatus) {
		transitions = append(transitions, s.State)
	})

	form := model.FormState{URL: "https://open.spotify.com/track/abc", Mode: model.ModeVideo, Quality: model.Quality720}
	status, err := c.Submit(context.Background(), form)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if status.State != model.StateSucceeded {
		t.Errorf("Expected status %s, got %s (%s)", model.StateSucceeded, status.State, status.Message)
	}
	if c.Status().State != model.StateSucceeded {
		t.Errorf("Expected controller status %s, got %s", model.StateSucceeded, c.Status().State)
	}
	if saver.calls != 1 {
		t.Errorf("Expected exactly one save, got %d", saver.calls)
	}
	if saver.data != "binary-media" {
		t.Errorf("Expected saved body 'binary-media', got %q", saver.data)
	}
	if saver.name != DefaultFilename {
		t.Errorf("Expected default filename, got %q", saver.name)
	}
	if status.SavedPath != "/saved/"+DefaultFilename {
		t.Errorf("Unexpected saved path %q", status.SavedPath)
	}

	want := model.DownloadRequest{URL: form.URL, OutputPath: "C:/VideoSongsOutput", Quality: "720px", Type: "video"}
	if got != want {
		t.Errorf("Request body = %+v, expected %+v", got, want)
	}

	if len(transitions) != 2 || transitions[0] != model.StateInFlight || transitions[1] != model.StateSucceeded {
		t.Errorf("Unexpected transitions %v", transitions)
	}
}

func TestSubmitUsesContentDispositionFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename*=UTF-8''Caf%C3%A9%20Song.mp3`)
		io.WriteString(w, "x")
	}))
	defer srv.Close()

	saver := &recordingSaver{}
	c := newTestController(t, srv.URL, saver)

	if _, err := c.Submit(context.Background(), model.FormState{Mode: model.ModeAudio}); err != nil {
		t.Fatal(err)
	}
	if saver.name != "Café Song.mp3" {
		t.Errorf("Expected decoded filename, got %q", saver.name)
	}
}

func TestSubmitErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"invalid id", http.StatusBadRequest, `{"status":"error","message":"invalid id: bad-url"}`, InvalidURLMessage},
		{"invalid id inside prose", http.StatusBadRequest, `{"message":"http status 400, code:-1 - invalid id, reason: None"}`, InvalidURLMessage},
		{"verbatim", http.StatusInternalServerError, `{"message":"yt-dlp exited with status 1"}`, "yt-dlp exited with status 1"},
		{"missing message", http.StatusInternalServerError, `{"status":"error"}`, FallbackMessage},
		{"empty message", http.StatusBadGateway, `{"message":""}`, FallbackMessage},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, TransportMessage},
		{"wrong message type", http.StatusBadRequest, `{"message":42}`, TransportMessage},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				jsonError(w, test.code, test.body)
			}))
			defer srv.Close()

			saver := &recordingSaver{}
			c := newTestController(t, srv.URL, saver)

			status, err := c.Submit(context.Background(), model.FormState{URL: "bad-url", Mode: model.ModeAudio})
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if status.State != model.StateFailed {
				t.Errorf("Expected status %s, got %s", model.StateFailed, status.State)
			}
			if status.Message != test.want {
				t.Errorf("Message = %q, expected %q", status.Message, test.want)
			}
			if saver.calls != 0 {
				t.Errorf("Expected no save on failure, got %d", saver.calls)
			}
		})
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c := newTestController(t, endpoint, &recordingSaver{})

	status, err := c.Submit(context.Background(), model.FormState{URL: "https://open.spotify.com/track/abc", Mode: model.ModeVideo})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if status.State != model.StateFailed || status.Message != TransportMessage {
		t.Errorf("Expected transport failure, got %+v", status)
	}
	if c.Status().IsActive() {
		t.Error("Expected in-flight flag to be cleared")
	}
}

func TestSubmitSaveFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	var got string
	c := newTestController(t, srv.URL, SaverFunc(func(name string, r io.Reader) (string, error) {
		b, _ := io.ReadAll(r)
		got = string(b)
		return "", errors.New("disk full")
	}))

	status, _ := c.Submit(context.Background(), model.FormState{Mode: model.ModeAudio})
	if status.State != model.StateFailed || status.Message != TransportMessage {
		t.Errorf("Expected transport failure, got %+v", status)
	}
	if got != "data" {
		t.Errorf("Expected saver to receive the body, got %q", got)
	}
}

func TestSubmitReleasesTransientFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	tmp := t.TempDir()
	for _, saveErr := range []error{nil, errors.New("boom")} {
		c, err := New(Options{Endpoint: srv.URL, TempDir: tmp, Saver: &recordingSaver{err: saveErr}})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Submit(context.Background(), model.FormState{Mode: model.ModeAudio}); err != nil {
			t.Fatal(err)
		}

		entries, err := os.ReadDir(tmp)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 0 {
			t.Errorf("Expected transient dir to be empty (save error %v), found %d entries", saveErr, len(entries))
		}
	}
}

func TestSubmitIsSingleFlight(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})
	arrived := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		arrived <- struct{}{}
		<-release
		io.WriteString(w, "data")
	}))
	defer srv.Close()

	saver := &recordingSaver{}
	c := newTestController(t, srv.URL, saver)
	form := model.FormState{URL: "https://open.spotify.com/track/abc", Mode: model.ModeVideo, Quality: model.Quality720}

	done := make(chan model.RequestStatus, 1)
	go func() {
		s, _ := c.Submit(context.Background(), form)
		done <- s
	}()

	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("First request never reached the server")
	}

	if !c.Status().IsActive() {
		t.Errorf("Expected in-flight status, got %s", c.Status().State)
	}

	status, err := c.Submit(context.Background(), form)
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("Expected ErrInFlight, got %v", err)
	}
	if !status.IsActive() {
		t.Errorf("Expected re-entrant submit to report in-flight, got %s", status.State)
	}

	close(release)
	final := <-done

	if final.State != model.StateSucceeded {
		t.Errorf("Expected first submit to succeed, got %+v", final)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected exactly one outbound request, got %d", n)
	}
	if saver.calls != 1 {
		t.Errorf("Expected exactly one save, got %d", saver.calls)
	}

	// a finished controller accepts the next submission
	if _, err := c.Submit(context.Background(), form); err != nil {
		t.Errorf("Expected resubmit after completion to be accepted, got %v", err)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	if _, err := New(Options{Endpoint: "localhost:5000", Saver: &recordingSaver{}}); err == nil {
		t.Error("Expected error for endpoint without scheme")
	}
	if _, err := New(Options{Endpoint: "http://localhost:5000/download"}); err == nil {
		t.Error("Expected error for missing saver")
	}
}
