package document

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/mempirate/scrapeview/scrape"
)

const DEFAULT_NAME = "page"

var fileNameRegex = regexp.MustCompile(`[\/\\:\*\?"<>\|\p{C}]`)

type Metadata struct {
	Title       string  `yaml:"title"`
	Description *string `yaml:"description,omitempty"`
	Source      string  `yaml:"source"`
	StatusCode  int     `yaml:"statusCode,omitempty"`

	ProcessedTime string `yaml:"processedTime"`
}

type Document struct {
	// The markdown content of the scraped page.
	Content string
	// Metadata about the document.
	Metadata Metadata
}

// FromPage builds a Document from a scraped page. source is used when the page
// carries no source URL of its own.
func FromPage(page scrape.PageContent, source string) *Document {
	d := &Document{
		Content: page.Markdown,
		Metadata: Metadata{
			Source:        source,
			ProcessedTime: time.Now().Format(time.RFC3339),
		},
	}

	if md := page.Metadata; md != nil {
		d.Metadata.Title = md.Title
		d.Metadata.StatusCode = md.StatusCode
		if md.Description != "" {
			description := md.Description
			d.Metadata.Description = &description
		}
		if md.SourceURL != "" {
			d.Metadata.Source = md.SourceURL
		}
	}

	return d
}

func (d *Document) HasTitle() bool {
	return d.Metadata.Title != ""
}

// FindTitle returns the title, falling back to the first H1 of the content.
// A title found in the content is stored in the metadata.
func (d *Document) FindTitle() string {
	// If the title is already set, return it.
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}

	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	content := []byte(d.Content)
	reader := text.NewReader(content)
	doc := md.Parser().Parse(reader)

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if heading, ok := n.(*ast.Heading); ok && entering && heading.Level == 1 {
			var titleBuilder strings.Builder
			// Walk through child nodes of the heading
			for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
				if text, ok := child.(*ast.Text); ok {
					titleBuilder.Write(text.Segment.Value(content))
				}
			}
			title = titleBuilder.String()
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	d.Metadata.Title = title

	return title
}

// FileName returns a file system safe name for the document with the given extension.
func (d *Document) FileName(ext string) string {
	if !d.HasTitle() {
		d.FindTitle()
	}

	name := strings.Trim(fileNameRegex.ReplaceAllString(d.Metadata.Title, "-"), " .")
	if name == "" {
		name = DEFAULT_NAME
	}

	return name + ext
}

// ToMarkdown converts the Document to a markdown string, with metadata as YAML front matter.
// It returns the filename and the markdown content, and an optional error.
func (d *Document) ToMarkdown() (string, string, error) {
	// Make sure title is set
	if !d.HasTitle() {
		d.FindTitle()
	}

	var builder strings.Builder
	frontMatter, err := yaml.Marshal(d.Metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal metadata to YAML")
	}

	builder.WriteString("---\n")
	builder.Write(frontMatter)
	builder.WriteString("---\n")
	builder.WriteString(d.Content)

	return d.FileName(".md"), builder.String(), nil
}

// RenderMarkdown renders markdown to HTML for previews. Raw HTML in the
// source is omitted.
func RenderMarkdown(source string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}

	return buf.String(), nil
}

// PagesJSON serializes pages as an indented JSON array. A nil slice is
// written as an empty array.
func PagesJSON(pages []scrape.PageContent) ([]byte, error) {
	if pages == nil {
		pages = []scrape.PageContent{}
	}

	data, err := json.MarshalIndent(pages, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal pages")
	}

	return data, nil
}
