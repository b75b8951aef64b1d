package synth

import (
	"context"
	"fmt"

	"github.com/personaforge/personad/internal/common"
	"github.com/personaforge/personad/internal/llm"
	"github.com/personaforge/personad/internal/store"
)

// Pipeline is the two-step persona synthesis chain. Raw input text is noisy
// while the target profile is rich and multi-section, so an intermediate
// normalization pass improves the model's reliability on the structured
// extraction step.
type Pipeline struct {
	provider llm.Provider
}

func NewPipeline(provider llm.Provider) *Pipeline {
	return &Pipeline{provider: provider}
}

// CleanText runs step one: normalize raw text into structured bullet notes.
func (p *Pipeline) CleanText(ctx context.Context, rawText string) (string, error) {
	logger := common.Logger()
	logger.Debug("synth: cleaning text", "input_chars", len(rawText))
	messages := []llm.Message{
		{Role: "system", Content: cleanSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(cleanUserTemplate, rawText)},
	}
	cleaned, err := p.provider.Chat(ctx, messages)
	if err != nil {
		logger.Error("synth: text cleaning failed", "error", err)
		return "", fmt.Errorf("text cleaning failed: %w", err)
	}
	logger.Debug("synth: text cleaned", "output_chars", len(cleaned))
	return cleaned, nil
}

// PopulatePersona runs step two: generate the structured persona document
// from cleaned notes, recovering JSON from free-form model output.
func (p *Pipeline) PopulatePersona(ctx context.Context, cleanedText string) (store.Document, error) {
	logger := common.Logger()
	logger.Debug("synth: populating persona", "input_chars", len(cleanedText))
	messages := []llm.Message{
		{Role: "system", Content: personaSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(personaUserTemplate, cleanedText)},
	}
	response, err := p.provider.Chat(ctx, messages)
	if err != nil {
		logger.Error("synth: persona generation failed", "error", err)
		return nil, fmt.Errorf("persona generation failed: %w", err)
	}
	doc, err := extractDocument(response)
	if err != nil {
		logger.Error("synth: model output not parseable", "error", err)
		return nil, err
	}
	logger.Debug("synth: persona populated", "keys", len(doc))
	return doc, nil
}

// GeneratePersona runs both steps in sequence and attaches a _meta
// sub-object recording the input/cleaned lengths and the model used. A
// failure in either step aborts the whole operation; no partial persona is
// ever returned.
func (p *Pipeline) GeneratePersona(ctx context.Context, rawText string) (store.Document, error) {
	logger := common.Logger()
	logger.Info("synth: starting persona generation pipeline", "input_chars", len(rawText))

	cleaned, err := p.CleanText(ctx, rawText)
	if err != nil {
		return nil, err
	}

	doc, err := p.PopulatePersona(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	doc["_meta"] = map[string]any{
		"raw_text_length":     len(rawText),
		"cleaned_text_length": len(cleaned),
		"model_used":          p.provider.Model(),
	}
	logger.Info("synth: persona generation pipeline completed", "model", p.provider.Model())
	return doc, nil
}
