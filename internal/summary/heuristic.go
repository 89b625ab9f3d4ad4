package summary

import (
	"context"
	"strings"
	"unicode"

	"briefing/internal/services"
)

const (
	heuristicModel = "heuristic"
	maxHighlights  = 4
)

// HeuristicGenerator summarises without an LLM: the first sentences become
// the tl;dr and highlights, the longest sentence the key quote.
type HeuristicGenerator struct{}

// NewHeuristicGenerator builds the fallback generator.
func NewHeuristicGenerator() *HeuristicGenerator {
	return &HeuristicGenerator{}
}

// Generate summarises the transcript. An empty transcript is a validation
// error.
func (g *HeuristicGenerator) Generate(ctx context.Context, input Input) (*Result, error) {
	sentences := splitSentences(input.Transcript)
	if len(sentences) == 0 {
		return nil, services.Wrap(services.ErrValidation, "summary", "generate", "transcript is empty", nil)
	}

	tldr := sentences[0]
	if len(sentences) > 1 {
		tldr = sentences[0] + " " + sentences[1]
	}

	count := len(sentences)
	if count > maxHighlights {
		count = maxHighlights
	}
	highlights := make([]string, count)
	copy(highlights, sentences[:count])

	keyQuote := sentences[0]
	for _, sentence := range sentences[1:] {
		if len(sentence) > len(keyQuote) {
			keyQuote = sentence
		}
	}

	return &Result{
		TLDR:       tldr,
		Highlights: highlights,
		KeyQuote:   keyQuote,
		Model:      heuristicModel,
	}, nil
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		sentences []string
		start     int
		runes     = []rune(text)
	)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
