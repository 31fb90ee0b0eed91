package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mempirate/scrapeview/log"
	"github.com/mempirate/scrapeview/scrape"
	"github.com/mempirate/scrapeview/util"
)

// API_KEY_STORAGE_KEY is the credential store key of the scraping API key.
const API_KEY_STORAGE_KEY = "firecrawl_api_key"

// Outcome classifies a finished submission.
type Outcome string

const (
	OutcomeContent Outcome = "content"
	// OutcomeLegacy is a success whose content came from the flat response shape.
	OutcomeLegacy  Outcome = "legacy"
	OutcomeEmpty   Outcome = "empty"
	OutcomeFailure Outcome = "failure"
)

// ScrapeBackend is the interface the user surfaces drive.
type ScrapeBackend interface {
	// Submit validates and runs a single scrape request.
	Submit(ctx context.Context, req Request, progress ProgressFunc) (*Submission, error)
	// SetAPIKey persists the API key and uses it for subsequent submissions.
	SetAPIKey(key string) error
	// APIKey returns the API key in use.
	APIKey() string
}

// CredentialStore persists the API key between sessions.
type CredentialStore interface {
	Save(key, value string) error
	Load(key string) (string, bool)
}

type Request struct {
	URL     string
	Formats []scrape.Format
	Mode    scrape.Mode
	// Limit caps the number of crawled pages, 0 leaves it to the engine.
	Limit int
}

// Normalize validates the request and returns it with the URL scheme and
// mode filled in.
func (r Request) Normalize() (Request, error) {
	r.URL = util.NormalizeURL(r.URL)
	if r.URL == "" {
		return r, &ValidationError{Field: "url", Message: "missing URL"}
	}

	if len(r.Formats) == 0 {
		return r, &ValidationError{Field: "formats", Message: "missing format"}
	}

	seen := make(map[string]struct{}, len(r.Formats))
	formats := make([]scrape.Format, 0, len(r.Formats))
	for _, f := range r.Formats {
		if !scrape.IsFormat(f) {
			return r, &ValidationError{Field: "formats", Message: fmt.Sprintf("unsupported format %q", f)}
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}
	r.Formats = formats

	switch r.Mode {
	case "":
		r.Mode = scrape.ModeScrape
	case scrape.ModeScrape, scrape.ModeCrawl:
	default:
		return r, &ValidationError{Field: "mode", Message: fmt.Sprintf("unsupported mode %q", r.Mode)}
	}

	if r.Limit < 0 {
		return r, &ValidationError{Field: "limit", Message: "limit must not be negative"}
	}

	return r, nil
}

// Submission is one finished request together with its normalized result.
type Submission struct {
	ID       string
	Request  Request
	Result   *scrape.Result
	Outcome  Outcome
	Duration time.Duration
}

// Err returns the CollaboratorError or ErrEmptyContent warning of the
// submission, or nil when content was found.
func (s *Submission) Err() error {
	switch s.Outcome {
	case OutcomeFailure:
		return &CollaboratorError{Message: s.Result.Error}
	case OutcomeEmpty:
		return ErrEmptyContent
	}
	return nil
}

// Message returns the user facing summary of the submission.
func (s *Submission) Message() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}

	if s.Result.Completed == 1 {
		return "Successfully scraped 1 page"
	}

	return fmt.Sprintf("Successfully scraped %d pages", s.Result.Completed)
}

// Backend runs scrape submissions against the configured engine.
type Backend struct {
	log zerolog.Logger

	factory scrape.Factory
	creds   CredentialStore

	mu     sync.RWMutex
	apiKey string
}

// NewBackend creates a Backend using apiKey for the engine. creds may be nil,
// in which case keys are not persisted.
func NewBackend(apiKey string, factory scrape.Factory, creds CredentialStore) *Backend {
	return &Backend{
		log:     log.NewLogger("backend"),
		factory: factory,
		creds:   creds,
		apiKey:  apiKey,
	}
}

// ResolveAPIKey returns configured if it is set, otherwise the key stored in creds.
func ResolveAPIKey(configured string, creds CredentialStore) string {
	if configured != "" || creds == nil {
		return configured
	}

	key, _ := creds.Load(API_KEY_STORAGE_KEY)
	return key
}

func (b *Backend) APIKey() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.apiKey
}

// SetAPIKey stores the key and swaps it in. Empty keys are ignored.
func (b *Backend) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}

	if b.creds != nil {
		if err := b.creds.Save(API_KEY_STORAGE_KEY, key); err != nil {
			return errors.Wrap(err, "failed to save API key")
		}
	}

	b.mu.Lock()
	b.apiKey = key
	b.mu.Unlock()

	b.log.Info().Msg("API key saved")

	return nil
}

// Submit validates req, dispatches it and classifies the response. The only
// error returned is a ValidationError; engine failures are reported through
// the Submission.
func (b *Backend) Submit(ctx context.Context, req Request, fn ProgressFunc) (*Submission, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	progress := newProgress(fn)
	progress.set(ProgressAccepted)

	sub := &Submission{
		ID:      uuid.NewString(),
		Request: req,
	}

	log := b.log.With().Str("id", sub.ID).Str("url", req.URL).Logger()
	log.Info().Strs("formats", req.Formats).Str("mode", req.Mode).Msg("Starting scrape")

	sub.Result = b.dispatch(ctx, req, progress)
	progress.set(ProgressDone)

	sub.Outcome = classify(sub.Result)
	if sub.Outcome == OutcomeEmpty {
		sub.Result.Pages = []scrape.PageContent{}
		sub.Result.Completed = 0
	}
	sub.Duration = time.Since(start)

	switch sub.Outcome {
	case OutcomeFailure:
		log.Error().Str("error", sub.Result.Error).Dur("duration", sub.Duration).Msg("Scrape failed")
	case OutcomeEmpty:
		log.Warn().Dur("duration", sub.Duration).Msg("Scrape returned no content")
	default:
		log.Info().Str("outcome", string(sub.Outcome)).Int("pages", len(sub.Result.Pages)).Dur("duration", sub.Duration).Msg("Scrape completed")
	}

	return sub, nil
}

func (b *Backend) dispatch(ctx context.Context, req Request, progress *progress) *scrape.Result {
	scraper, err := b.factory(b.APIKey())
	if err != nil {
		return scrape.Failure(err.Error())
	}

	progress.set(ProgressDispatched)

	raw, err := scraper.Scrape(ctx, req.URL, scrape.Options{
		Formats: req.Formats,
		Mode:    req.Mode,
		Limit:   req.Limit,
	})
	if err != nil {
		return scrape.Failure(err.Error())
	}

	return scrape.Normalize(raw)
}

func classify(res *scrape.Result) Outcome {
	switch {
	case !res.Success:
		return OutcomeFailure
	case !res.HasContent():
		return OutcomeEmpty
	case res.Shape == scrape.ShapeFlat:
		return OutcomeLegacy
	default:
		return OutcomeContent
	}
}
