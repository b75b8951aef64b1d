package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/personaforge/personad/internal/store"
)

// ErrUnparseableOutput is returned when no recovery strategy can pull a
// JSON object out of the model's response. It is a hard failure; callers
// do not retry.
var ErrUnparseableOutput = errors.New("could not parse JSON response from model")

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

type parseStrategy func(string) (store.Document, bool)

// Model output is free-form text that may or may not be bare JSON.
// extractDocument runs an ordered chain of strategies and short-circuits
// on the first success: whole-response parse, first fenced code block,
// then the substring between the first '{' and the last '}'.
func extractDocument(text string) (store.Document, error) {
	strategies := []parseStrategy{parseDirect, parseFencedBlock, parseBraceSpan}
	for _, strategy := range strategies {
		if doc, ok := strategy(text); ok {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w (response length %d)", ErrUnparseableOutput, len(text))
}

func parseDirect(text string) (store.Document, bool) {
	return tryParse(strings.TrimSpace(text))
}

func parseFencedBlock(text string) (store.Document, bool) {
	match := fencedJSONPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, false
	}
	return tryParse(match[1])
}

func parseBraceSpan(text string) (store.Document, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, false
	}
	return tryParse(text[start : end+1])
}

func tryParse(candidate string) (store.Document, bool) {
	if candidate == "" {
		return nil, false
	}
	var doc store.Document
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, false
	}
	// "null" unmarshals successfully into a nil map; the document must be
	// a JSON object, so that counts as a failed strategy too.
	if doc == nil {
		return nil, false
	}
	return doc, true
}
