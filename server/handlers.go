package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/mempirate/scrapeview/backend"
	"github.com/mempirate/scrapeview/config"
	"github.com/mempirate/scrapeview/document"
	"github.com/mempirate/scrapeview/scrape"
)

const (
	ReplyBusy       = "A scrape is already in progress."
	ReplyNoResult   = "There is no result to download."
	ReplyNoMarkdown = "No markdown content available"
	ReplyNoHTML     = "No HTML content available"

	DOWNLOAD_NAME = "scrape-result.json"
)

var formatLabels = map[scrape.Format]string{
	scrape.FormatMarkdown: "Markdown",
	scrape.FormatHTML:     "HTML",
}

type formView struct {
	URL        string
	Formats    map[string]bool
	Crawl      bool
	Limit      int
	FieldError string
}

type tabView struct {
	Format   string
	Label    string
	Active   bool
	Disabled bool
}

type pageLink struct {
	Index  int
	Label  string
	Active bool
}

type resultView struct {
	ID  string
	URL string
	// PageCount is the number of pages shown, not the upstream counter.
	PageCount int

	Pages     []pageLink
	PageIndex int
	Tabs      []tabView
	Tab       string
	Preview   bool

	Raw         string
	Placeholder string
	// Rendered is the markdown preview, SrcDoc the HTML preview.
	Rendered template.HTML
	SrcDoc   string
}

type indexView struct {
	Form     formView
	APIKey   string
	KeySaved bool
	Pending  bool
	Progress int
	Notice   *Notice
	Result   *resultView
}

func (s *Server) defaultForm() formView {
	formats := make(map[string]bool, len(s.defaultFormats))
	for _, f := range s.defaultFormats {
		formats[f] = true
	}

	return formView{Formats: formats, Limit: s.crawlLimit}
}

func (s *Server) render(w http.ResponseWriter, status int, view indexView) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, view); err != nil {
		s.log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (s *Server) baseView(st state) indexView {
	view := indexView{
		Form:     s.defaultForm(),
		APIKey:   config.MaskKey(s.backend.APIKey()),
		Pending:  st.pending,
		Progress: st.progress,
		Notice:   st.notice,
	}

	if st.request.URL != "" {
		view.Form.URL = st.request.URL
		view.Form.Formats = make(map[string]bool, len(st.request.Formats))
		for _, f := range st.request.Formats {
			view.Form.Formats[f] = true
		}
		view.Form.Crawl = st.request.Mode == scrape.ModeCrawl
		if st.request.Limit > 0 {
			view.Form.Limit = st.request.Limit
		}
	}

	return view
}

// handleIndex serves the form and, when available, the current result.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()

	view := s.baseView(st)
	view.KeySaved = r.URL.Query().Get("key") == "saved"

	if !st.pending && st.submission != nil && st.submission.Result.HasContent() {
		result, err := buildResult(st.submission, r)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to build result view")
			view.Notice = &Notice{Level: NoticeError, Message: err.Error()}
		}
		view.Result = result
	}

	s.render(w, http.StatusOK, view)
}

// buildResult prepares the tabbed view of the selected page. The active tab
// defaults to the first format the page carries.
func buildResult(sub *backend.Submission, r *http.Request) (*resultView, error) {
	q := r.URL.Query()
	pages := sub.Result.Pages

	index, err := strconv.Atoi(q.Get("page"))
	if err != nil || index < 0 || index >= len(pages) {
		index = 0
	}
	page := pages[index]

	view := &resultView{
		ID:        sub.ID,
		URL:       sub.Request.URL,
		PageCount: len(pages),
		PageIndex: index,
		Preview:   q.Get("view") == "preview",
	}

	if len(pages) > 1 {
		for i, p := range pages {
			label := fmt.Sprintf("Page %d", i+1)
			if p.Metadata != nil && p.Metadata.Title != "" {
				label = p.Metadata.Title
			}
			view.Pages = append(view.Pages, pageLink{Index: i, Label: label, Active: i == index})
		}
	}

	tab := q.Get("tab")
	if !page.Has(tab) {
		tab = ""
		for _, f := range []scrape.Format{scrape.FormatMarkdown, scrape.FormatHTML} {
			if page.Has(f) {
				tab = f
				break
			}
		}
	}
	view.Tab = tab

	for _, f := range []scrape.Format{scrape.FormatMarkdown, scrape.FormatHTML} {
		view.Tabs = append(view.Tabs, tabView{
			Format:   f,
			Label:    formatLabels[f],
			Active:   f == tab,
			Disabled: !page.Has(f),
		})
	}

	switch tab {
	case scrape.FormatMarkdown:
		view.Raw = page.Markdown
		if view.Preview {
			rendered, err := document.RenderMarkdown(page.Markdown)
			if err != nil {
				return view, err
			}
			view.Rendered = template.HTML(rendered)
		}
	case scrape.FormatHTML:
		view.Raw = page.HTML
		if view.Preview {
			view.SrcDoc = page.HTML
		}
	}

	if view.Raw == "" {
		view.Placeholder = ReplyNoMarkdown
		if tab == scrape.FormatHTML {
			view.Placeholder = ReplyNoHTML
		}
	}

	return view, nil
}

func requestFromForm(r *http.Request) (backend.Request, formView) {
	form := formView{
		URL:     strings.TrimSpace(r.FormValue("url")),
		Formats: make(map[string]bool),
		Crawl:   r.FormValue("mode") == scrape.ModeCrawl,
	}

	req := backend.Request{
		URL:     form.URL,
		Formats: r.Form["format"],
		Mode:    r.FormValue("mode"),
	}

	for _, f := range req.Formats {
		form.Formats[f] = true
	}

	if limit := r.FormValue("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			n = -1
		}
		req.Limit = n
		form.Limit = n
	}

	return req, form
}

// handleScrape validates the form and starts the submission in the background.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, form := requestFromForm(r)
	if req.Mode == scrape.ModeCrawl && req.Limit == 0 {
		req.Limit = s.crawlLimit
	}

	req, err := req.Normalize()
	if err != nil {
		view := s.baseView(s.snapshot())
		view.Form = form
		view.Form.FieldError = err.Error()
		s.render(w, http.StatusBadRequest, view)
		return
	}

	if !s.start(req) {
		view := s.baseView(s.snapshot())
		view.Notice = &Notice{Level: NoticeError, Message: ReplyBusy}
		s.render(w, http.StatusConflict, view)
		return
	}

	s.log.Info().Str("url", req.URL).Str("mode", req.Mode).Msg("Submission accepted")

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type statusResponse struct {
	ID       string  `json:"id,omitempty"`
	Pending  bool    `json:"pending"`
	Progress int     `json:"progress"`
	Outcome  string  `json:"outcome,omitempty"`
	Pages    int     `json:"pages"`
	Notice   *Notice `json:"notice,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()

	resp := statusResponse{
		Pending:  st.pending,
		Progress: st.progress,
		Notice:   st.notice,
	}

	if st.submission != nil {
		resp.ID = st.submission.ID
		resp.Outcome = string(st.submission.Outcome)
		resp.Pages = len(st.submission.Result.Pages)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode status")
	}
}

// handleDownload serves the current result as a JSON array of pages, or a
// single page as markdown with front matter when format=md.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	st := s.snapshot()
	if st.pending || st.submission == nil || !st.submission.Result.Success {
		http.Error(w, ReplyNoResult, http.StatusNotFound)
		return
	}

	sub := st.submission
	pages := sub.Result.Pages

	if r.URL.Query().Get("format") == "md" {
		index, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || index < 0 || index >= len(pages) {
			index = 0
		}
		if len(pages) == 0 {
			http.Error(w, ReplyNoResult, http.StatusNotFound)
			return
		}

		name, content, err := document.FromPage(pages[index], sub.Request.URL).ToMarkdown()
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to export markdown")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeAttachment(w, name, "text/markdown; charset=utf-8", []byte(content))
		return
	}

	data, err := document.PagesJSON(pages)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to export result")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeAttachment(w, DOWNLOAD_NAME, "application/json", data)
}

func writeAttachment(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.FormValue("apiKey"))
	if key == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := s.backend.SetAPIKey(key); err != nil {
		s.log.Error().Err(err).Msg("Failed to save API key")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/?key=saved", http.StatusSeeOther)
}
