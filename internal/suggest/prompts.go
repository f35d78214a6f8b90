package suggest

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompts holds the suggestion prompt and the fixed suggestion sets.
type Prompts struct {
	HistoryWindow  int      `yaml:"history_window"`
	MaxSuggestions int      `yaml:"max_suggestions"`
	Greetings      []string `yaml:"greetings"`
	Fallback       []string `yaml:"fallback"`
	Prompt         string   `yaml:"prompt"`

	tmpl *template.Template
}

// LoadPrompts parses a prompts document.
func LoadPrompts(raw []byte) (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Prompts{}, fmt.Errorf("suggest: decode prompts: %w", err)
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return Prompts{}, errors.New("suggest: prompt must not be empty")
	}
	if p.HistoryWindow <= 0 {
		p.HistoryWindow = 5
	}
	if p.MaxSuggestions <= 0 {
		p.MaxSuggestions = 3
	}
	tmpl, err := template.New("suggest").Option("missingkey=error").Parse(p.Prompt)
	if err != nil {
		return Prompts{}, fmt.Errorf("suggest: parse prompt template: %w", err)
	}
	p.tmpl = tmpl
	return p, nil
}

// DefaultPrompts returns the embedded prompts.
func DefaultPrompts() Prompts {
	p, err := LoadPrompts(defaultPromptsYAML)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Prompts) render(context string) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, struct{ Context string }{Context: context}); err != nil {
		return "", fmt.Errorf("suggest: render prompt: %w", err)
	}
	return b.String(), nil
}
