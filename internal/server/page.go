package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"
)

//go:embed web/index.html
var webFS embed.FS

var pageTemplate = template.Must(template.ParseFS(webFS, "web/index.html"))

const (
	maxInputHeight = 150
	pollInterval   = 750 * time.Millisecond
	pollAttempts   = 16
)

type pageData struct {
	Title              string
	MaxInputHeight     int
	PollIntervalMillis int64
	PollAttempts       int
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:              s.title,
		MaxInputHeight:     maxInputHeight,
		PollIntervalMillis: pollInterval.Milliseconds(),
		PollAttempts:       pollAttempts,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to render chat page", "err", err)
	}
}
