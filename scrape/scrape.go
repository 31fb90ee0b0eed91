package scrape

type Format = string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// IsFormat reports whether f is a supported output format.
func IsFormat(f string) bool {
	return f == FormatMarkdown || f == FormatHTML
}

type Mode = string

const (
	// ModeScrape scrapes a single page.
	ModeScrape Mode = "scrape"
	// ModeCrawl follows links from the target and returns multiple pages.
	ModeCrawl Mode = "crawl"
)

type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	SourceURL   string `json:"sourceURL,omitempty"`
	StatusCode  int    `json:"statusCode,omitempty"`
}

// PageContent is the markdown and/or HTML extracted for one page.
type PageContent struct {
	Markdown string        `json:"markdown,omitempty"`
	HTML     string        `json:"html,omitempty"`
	Metadata *PageMetadata `json:"metadata,omitempty"`
}

// HasContent reports whether the page carries markdown or HTML.
func (p PageContent) HasContent() bool {
	return p.Markdown != "" || p.HTML != ""
}

// Has reports whether the page carries content in the given format.
func (p PageContent) Has(f Format) bool {
	switch f {
	case FormatMarkdown:
		return p.Markdown != ""
	case FormatHTML:
		return p.HTML != ""
	}
	return false
}

// RawResponse is what a collaborator hands back. Depending on the engine and
// mode, content arrives either in Data or in the flat Markdown/HTML fields.
type RawResponse struct {
	Success bool `json:"success"`
	// Completed is the page count reported by multi-page responses.
	Completed int `json:"completed,omitempty"`

	Data []PageContent `json:"data,omitempty"`

	Markdown *string       `json:"markdown,omitempty"`
	HTML     *string       `json:"html,omitempty"`
	Metadata *PageMetadata `json:"metadata,omitempty"`

	Error string `json:"error,omitempty"`
}
