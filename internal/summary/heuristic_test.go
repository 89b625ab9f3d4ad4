package summary

import (
	"context"
	"reflect"
	"testing"

	"briefing/internal/services"
)

func TestHeuristicGenerate(t *testing.T) {
	transcript := "Welcome back. Today we cover retries. Backoff doubles per attempt, which keeps pressure off the upstream! Short. Done?"
	result, err := NewHeuristicGenerator().Generate(context.Background(), Input{Transcript: transcript})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if result.TLDR != "Welcome back. Today we cover retries." {
		t.Fatalf("unexpected tl;dr: %q", result.TLDR)
	}
	wantHighlights := []string{
		"Welcome back.",
		"Today we cover retries.",
		"Backoff doubles per attempt, which keeps pressure off the upstream!",
		"Short.",
	}
	if !reflect.DeepEqual(result.Highlights, wantHighlights) {
		t.Fatalf("unexpected highlights: %v", result.Highlights)
	}
	if result.KeyQuote != "Backoff doubles per attempt, which keeps pressure off the upstream!" {
		t.Fatalf("key quote should be the longest sentence, got %q", result.KeyQuote)
	}
	if result.Model != "heuristic" {
		t.Fatalf("unexpected model label: %q", result.Model)
	}
}

func TestHeuristicSingleSentence(t *testing.T) {
	result, err := NewHeuristicGenerator().Generate(context.Background(), Input{Transcript: "Just one thought"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.TLDR != "Just one thought" {
		t.Fatalf("unexpected tl;dr: %q", result.TLDR)
	}
	if len(result.Highlights) != 1 {
		t.Fatalf("expected one highlight, got %v", result.Highlights)
	}
}

func TestHeuristicEmptyTranscriptIsValidation(t *testing.T) {
	_, err := NewHeuristicGenerator().Generate(context.Background(), Input{Transcript: "   "})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !services.IsValidation(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}
}

func TestSplitSentencesKeepsAbbreviatedText(t *testing.T) {
	// Punctuation not followed by whitespace does not end a sentence.
	sentences := splitSentences("Version 1.5 shipped today. It works.")
	want := []string{"Version 1.5 shipped today.", "It works."}
	if !reflect.DeepEqual(sentences, want) {
		t.Fatalf("unexpected sentences: %v", sentences)
	}
}

func TestParsePayloadToleratesCodeFences(t *testing.T) {
	cases := []string{
		`{"tl_dr":"Short.","highlights":["a","b"],"key_quote":"q"}`,
		"```json\n{\"tl_dr\":\"Short.\",\"highlights\":[\"a\",\"b\"],\"key_quote\":\"q\"}\n```",
		"```\n{\"tl_dr\":\"Short.\",\"highlights\":[\"a\",\"b\"],\"key_quote\":\"q\"}\n```",
	}
	for _, content := range cases {
		payload, err := parsePayload(content)
		if err != nil {
			t.Fatalf("parse %q: %v", content, err)
		}
		if payload.TLDR != "Short." || len(payload.Highlights) != 2 {
			t.Fatalf("unexpected payload for %q: %+v", content, payload)
		}
	}
}

func TestParsePayloadNullQuote(t *testing.T) {
	payload, err := parsePayload(`{"tl_dr":"Short.","highlights":[],"key_quote":null}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.KeyQuote != nil {
		t.Fatalf("expected nil key quote, got %v", payload.KeyQuote)
	}
}
