package scrape

const DEFAULT_ERROR = "Failed to scrape website"

// Shape records which part of a RawResponse the pages were taken from.
type Shape int

const (
	ShapeNone Shape = iota
	// ShapeData means the pages came from the data array.
	ShapeData
	// ShapeFlat means the pages were built from top-level markdown/html fields.
	ShapeFlat
)

func (s Shape) String() string {
	switch s {
	case ShapeData:
		return "data"
	case ShapeFlat:
		return "flat"
	default:
		return "none"
	}
}

// Result is the canonical, shape-agnostic form of a scrape response.
type Result struct {
	Success bool          `json:"success"`
	Pages   []PageContent `json:"pages"`
	Error   string        `json:"error,omitempty"`
	// Completed is the page count reported upstream, or len(Pages).
	Completed int `json:"completed"`

	Shape Shape `json:"-"`
}

// HasContent reports whether the first page has markdown or HTML.
func (r *Result) HasContent() bool {
	return r.Success && len(r.Pages) > 0 && r.Pages[0].HasContent()
}

// Failure builds an unsuccessful Result, using DEFAULT_ERROR when msg is empty.
func Failure(msg string) *Result {
	if msg == "" {
		msg = DEFAULT_ERROR
	}

	return &Result{
		Success: false,
		Pages:   []PageContent{},
		Error:   msg,
	}
}

// Normalize reconciles the two response shapes into a Result. The data array
// wins over flat fields when both are present.
func Normalize(raw *RawResponse) *Result {
	if raw == nil || !raw.Success {
		var msg string
		if raw != nil {
			msg = raw.Error
		}
		return Failure(msg)
	}

	res := &Result{
		Success: true,
		Pages:   []PageContent{},
	}

	switch {
	case len(raw.Data) > 0:
		res.Pages = raw.Data
		res.Shape = ShapeData
	case raw.Markdown != nil || raw.HTML != nil:
		page := PageContent{Metadata: raw.Metadata}
		if raw.Markdown != nil {
			page.Markdown = *raw.Markdown
		}
		if raw.HTML != nil {
			page.HTML = *raw.HTML
		}

		res.Pages = []PageContent{page}
		res.Shape = ShapeFlat
	}

	res.Completed = raw.Completed
	if res.Completed == 0 {
		res.Completed = len(res.Pages)
	}

	return res
}
