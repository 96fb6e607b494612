// Package script maps scripting languages to handlers able to render test
// scripts from templates and, for project-style languages, scaffold a
// multi-file project layout. Handlers are selected by language key or by a
// file entry's extension.
package script

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"text/template"

	"github.com/perfcanvas/scriptstore/internal/server/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// quickTestFileName is the generated script name for single-URL tests.
const quickTestFileName = "TestRunner"

// Handler renders scripts for one target scripting language.
type Handler interface {
	// Key is the language identifier ("groovy", "jython", ...).
	Key() string

	// Title is the human-readable language name.
	Title() string

	// Extension is the file extension without the dot.
	Extension() string

	// ScriptTemplate renders the language template with the given
	// parameters. The same template serves quick tests (url/userName/name/
	// options parameters) and HAR conversion (requests/commonHeader).
	ScriptTemplate(params map[string]any) (string, error)

	// DefaultQuickTestPath is where a quick test script for basePath lives.
	DefaultQuickTestPath(basePath string) string
}

// Saver persists entries on behalf of a scaffolding handler.
type Saver interface {
	Save(ctx context.Context, user models.User, entry *models.FileEntry) error
}

// ProjectScaffolder is implemented by handlers whose scripts live inside a
// multi-file project layout rather than as a single entry.
type ProjectScaffolder interface {
	Handler

	// PrepareScaffold persists the whole project layout through saver,
	// with mainScript as the content of the main test script.
	PrepareScaffold(ctx context.Context, user models.User, path, fileName, name, url string, libAndResource bool, mainScript string, saver Saver) error
}

type baseHandler struct {
	key          string
	title        string
	extension    string
	templateName string
}

func (h baseHandler) Key() string       { return h.key }
func (h baseHandler) Title() string     { return h.title }
func (h baseHandler) Extension() string { return h.extension }

func (h baseHandler) ScriptTemplate(params map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, h.templateName, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Registry holds the known handlers in registration order.
type Registry struct {
	handlers []Handler
	byKey    map[string]Handler
}

// NewRegistry builds a registry from the given handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{byKey: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers = append(r.handlers, h)
		r.byKey[h.Key()] = h
	}
	return r
}

// DefaultRegistry returns the registry with all built-in handlers.
func DefaultRegistry() *Registry {
	return NewRegistry(NewGroovyHandler(), NewJythonHandler(), NewGroovyMavenHandler())
}

// ByKey returns the handler for the language key.
func (r *Registry) ByKey(key string) (Handler, bool) {
	h, ok := r.byKey[key]
	return h, ok
}

// ByPath returns the first non-project handler matching the path's
// extension. Project handlers share an extension with their base language
// and are only addressable by key.
func (r *Registry) ByPath(path string) (Handler, bool) {
	idx := strings.LastIndex(path, ".")
	if idx == -1 {
		return nil, false
	}
	ext := path[idx+1:]
	for _, h := range r.handlers {
		if _, project := h.(ProjectScaffolder); project {
			continue
		}
		if h.Extension() == ext {
			return h, true
		}
	}
	return nil, false
}

// Keys lists the registered language keys in registration order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		keys = append(keys, h.Key())
	}
	return keys
}
