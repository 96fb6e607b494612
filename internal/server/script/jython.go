package script

import "github.com/perfcanvas/scriptstore/internal/pathx"

// JythonHandler renders Jython test scripts.
type JythonHandler struct {
	baseHandler
}

func NewJythonHandler() *JythonHandler {
	return &JythonHandler{baseHandler{
		key:          "jython",
		title:        "Jython",
		extension:    "py",
		templateName: "jython.tmpl",
	}}
}

func (h *JythonHandler) DefaultQuickTestPath(basePath string) string {
	return pathx.Join(basePath, quickTestFileName+"."+h.extension)
}
