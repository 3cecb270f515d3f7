package handler

import (
	"fmt"
	"net/http"

	scalargo "github.com/bdpiprava/scalar-go"
	"github.com/sirupsen/logrus"
)

// DocsHandler renders the API reference from the OpenAPI document in specDir.
type DocsHandler struct {
	specDir string
	title   string
}

// NewDocsHandler creates a docs handler for the api.yaml in specDir.
func NewDocsHandler(specDir, title string) *DocsHandler {
	return &DocsHandler{specDir: specDir, title: title}
}

// Reference handles GET /docs
func (h *DocsHandler) Reference(w http.ResponseWriter, r *http.Request) {
	html, err := scalargo.NewV2(
		scalargo.WithSpecDir(h.specDir),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle(h.title),
		),
	)
	if err != nil {
		logrus.WithError(err).WithField("spec_dir", h.specDir).Error("Failed to render API reference")
		http.Error(w, "API reference unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}
