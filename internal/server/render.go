package server

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"webhook-chat/internal/conversation"
	"webhook-chat/internal/domain"
)

type messageView struct {
	domain.Message
	HTML string `json:"html,omitempty"`
}

type snapshotResponse struct {
	Messages    []messageView          `json:"messages"`
	State       conversation.TurnState `json:"state"`
	IsLoading   bool                   `json:"isLoading"`
	Suggestions []string               `json:"suggestions"`
	Generation  uint64                 `json:"generation"`
}

func newSnapshotResponse(snap conversation.Snapshot) snapshotResponse {
	views := make([]messageView, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		view := messageView{Message: m}
		if m.Role == domain.RoleAssistant {
			view.HTML = renderMarkdown(m.Content)
		}
		views = append(views, view)
	}
	suggestions := snap.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return snapshotResponse{
		Messages:    views,
		State:       snap.State,
		IsLoading:   snap.IsLoading,
		Suggestions: suggestions,
		Generation:  snap.Generation,
	}
}

// renderMarkdown converts an assistant reply to HTML. Raw HTML in the reply
// is dropped, so the result is safe to insert into the page.
func renderMarkdown(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	// parsers keep state between calls
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.HardLineBreak)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML | html.HrefTargetBlank | html.Safelink,
	})
	return strings.TrimSpace(string(markdown.Render(p.Parse([]byte(content)), renderer)))
}
