package usecase

import (
	"testing"

	"herelaw/internal/domain"
)

func TestTranscriptAggregatorAppliesEventsInArrivalOrder(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: "a"})
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "ab"})
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: "abc"})

	// The final stays; the late interim is shown after it, never over it.
	if got := agg.Visible(); got != "ab\nabc" {
		t.Fatalf("unexpected visible text: %q", got)
	}
	if got := agg.Transcript(); got != "ab" {
		t.Fatalf("unexpected settled transcript: %q", got)
	}
}

func TestTranscriptAggregatorFinalSupersedesInterim(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: "hello wor"})
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "hello world"})

	if got := agg.Visible(); got != "hello world" {
		t.Fatalf("unexpected visible text: %q", got)
	}
}

func TestTranscriptAggregatorKeepsInterimWhenNoFinalArrives(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: "only interim"})

	if got := agg.Transcript(); got != "only interim" {
		t.Fatalf("unexpected settled transcript: %q", got)
	}
}

func TestTranscriptAggregatorJoinsFinalsInOrder(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "first sentence"})
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: "second sentence"})

	if got := agg.Transcript(); got != "first sentence\nsecond sentence" {
		t.Fatalf("unexpected settled transcript: %q", got)
	}
}

func TestTranscriptAggregatorIgnoresEmpty(t *testing.T) {
	t.Parallel()

	agg := newTranscriptAggregator()
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindInterim, Text: "   "})
	agg.Add(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: ""})

	if got := agg.Visible(); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
