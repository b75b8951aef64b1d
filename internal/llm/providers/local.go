package providers

import (
	"context"
	"fmt"
	"strings"
)

// LocalProvider is the offline fallback used when no API key is configured.
// It is deterministic: the cleaning prompt echoes the input as bullet notes
// and the persona prompt yields a minimal valid JSON document, so the full
// pipeline stays exercisable in development.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

func (l *LocalProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}
	wantsJSON := false
	for _, msg := range messages {
		if strings.Contains(strings.ToLower(msg.Content), "json") {
			wantsJSON = true
			break
		}
	}
	last := strings.TrimSpace(messages[len(messages)-1].Content)
	if wantsJSON {
		return `{"identity":{"core_description":"locally generated placeholder persona"},"meta":{"name":"","role":"","location":""}}`, nil
	}
	var notes strings.Builder
	for _, line := range strings.Split(last, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		notes.WriteString("- ")
		notes.WriteString(trimmed)
		notes.WriteString("\n")
	}
	return notes.String(), nil
}

func (l *LocalProvider) Name() string {
	return "local"
}

func (l *LocalProvider) Model() string {
	return "local-stub"
}
