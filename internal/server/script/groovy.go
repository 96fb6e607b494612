package script

import "github.com/perfcanvas/scriptstore/internal/pathx"

// GroovyHandler renders JUnit-style Groovy test scripts.
type GroovyHandler struct {
	baseHandler
}

func NewGroovyHandler() *GroovyHandler {
	return &GroovyHandler{baseHandler{
		key:          "groovy",
		title:        "Groovy",
		extension:    "groovy",
		templateName: "groovy.tmpl",
	}}
}

func (h *GroovyHandler) DefaultQuickTestPath(basePath string) string {
	return pathx.Join(basePath, quickTestFileName+"."+h.extension)
}
