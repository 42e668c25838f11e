// Package view turns posts component state into HTML: the full page shell for the first
// visit and the bare component fragment that RPC calls swap in afterwards.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/monadicstack/livepost/component"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Notices is the read-once source of flash messages (see flash.Mailbox).
type Notices interface {
	Take() (string, bool)
}

// Model is everything a render needs.
type Model struct {
	// State is the component state to draw.
	State component.State
	// Notices supplies the pending flash message. Rendering consumes it. May be nil.
	Notices Notices
	// Alert is an error banner for faults such as a post that no longer exists.
	Alert string
}

// Options tune the page shell. The zero value is usable.
type Options struct {
	// Title is the page heading (default "Posts").
	Title string
	// Endpoint is the RPC base path operations are appended to (default "/rpc/Posts").
	Endpoint string
	// AssetPrefix is where the embedded static files are served (default "/static").
	AssetPrefix string
}

// New parses the embedded templates.
func New(options Options) (*Renderer, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	if options.Title == "" {
		options.Title = "Posts"
	}
	if options.Endpoint == "" {
		options.Endpoint = "/rpc/" + component.Name
	}
	if options.AssetPrefix == "" {
		options.AssetPrefix = "/static"
	}
	return &Renderer{templates: templates, options: options}, nil
}

// Renderer executes the parsed templates. It is safe for concurrent use.
type Renderer struct {
	templates *template.Template
	options   Options
}

// templateData is the dot value every template sees.
type templateData struct {
	Title       string
	Component   string
	Endpoint    string
	AssetPrefix string
	State       component.State
	Notice      string
	Alert       string
}

// Page writes the complete HTML document with the component embedded in it.
func (r *Renderer) Page(w io.Writer, model Model) error {
	return r.execute(w, "page", model)
}

// Component writes just the component markup (banners, active form, table).
func (r *Renderer) Component(w io.Writer, model Model) error {
	return r.execute(w, "posts", model)
}

// execute renders into a buffer first so a template failure never leaves half a page
// on the wire.
func (r *Renderer) execute(w io.Writer, name string, model Model) error {
	data := templateData{
		Title:       r.options.Title,
		Component:   component.Name,
		Endpoint:    r.options.Endpoint,
		AssetPrefix: r.options.AssetPrefix,
		State:       model.State,
		Alert:       model.Alert,
	}
	if model.Notices != nil {
		data.Notice, _ = model.Notices.Take()
	}

	buf := &bytes.Buffer{}
	if err := r.templates.ExecuteTemplate(buf, name, data); err != nil {
		return fmt.Errorf("view: render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Assets exposes the embedded static files (wire.js) rooted at the static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The directory is embedded at compile time, so this cannot happen.
		panic(err)
	}
	return sub
}
