// Package server implements the browser front-end: a form to submit a URL,
// a progress view while the scrape runs and a tabbed results view with
// download actions.
package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mempirate/scrapeview/backend"
	"github.com/mempirate/scrapeview/config"
	"github.com/mempirate/scrapeview/log"
)

//go:embed templates/*.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a dismissible notification shown above the results.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// state is the single "current result" slot. Every submission replaces it.
type state struct {
	pending    bool
	progress   int
	request    backend.Request
	submission *backend.Submission
	notice     *Notice
}

type Server struct {
	log     zerolog.Logger
	backend backend.ScrapeBackend

	defaultFormats []string
	crawlLimit     int

	// ctx is the parent of background submissions, cancelled on shutdown.
	ctx context.Context
	wg  sync.WaitGroup

	mu    sync.Mutex
	state state
}

func NewServer(ctx context.Context, b backend.ScrapeBackend, cfg *config.Config) *Server {
	return &Server{
		log:            log.NewLogger("server"),
		backend:        b,
		defaultFormats: cfg.DefaultFormats,
		crawlLimit:     cfg.CrawlLimit,
		ctx:            ctx,
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("GET /{$}", s.handleIndex)
	m.HandleFunc("POST /scrape", s.handleScrape)
	m.HandleFunc("GET /status", s.handleStatus)
	m.HandleFunc("GET /download", s.handleDownload)
	m.HandleFunc("POST /key", s.handleKey)

	return s.logRequests(m)
}

// Wait blocks until the running submission, if any, has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// logRequests logs requests and their durations.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			s.log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		}()

		next.ServeHTTP(sw, r)
	})
}

func (s *Server) setProgress(value int) {
	s.mu.Lock()
	s.state.progress = value
	s.mu.Unlock()
}

// start claims the slot for req. It returns false when a submission is
// already running.
func (s *Server) start(req backend.Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.pending {
		return false
	}

	s.state = state{
		pending: true,
		request: req,
	}

	s.wg.Add(1)
	go s.run(req)

	return true
}

func (s *Server) run(req backend.Request) {
	defer s.wg.Done()

	sub, err := s.backend.Submit(s.ctx, req, s.setProgress)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.pending = false
	s.state.submission = sub

	if err != nil {
		s.state.notice = &Notice{Level: NoticeError, Message: err.Error()}
		return
	}

	s.state.notice = noticeFor(sub)
}

func noticeFor(sub *backend.Submission) *Notice {
	level := NoticeSuccess
	switch sub.Outcome {
	case backend.OutcomeFailure:
		level = NoticeError
	case backend.OutcomeEmpty:
		level = NoticeWarning
	}

	return &Notice{Level: level, Message: sub.Message()}
}

// snapshot returns a copy of the current state.
func (s *Server) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}
