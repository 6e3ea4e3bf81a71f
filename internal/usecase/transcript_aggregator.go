package usecase

import (
	"strings"
	"sync"

	"herelaw/internal/domain"
	"herelaw/internal/ports"
)

// transcriptAggregator collects streaming results in arrival order.
// Finals are permanent; an interim is provisional and is superseded by
// the next event of either kind. A final is never overwritten.
type transcriptAggregator struct {
	mu      sync.Mutex
	finals  []string
	interim string
}

func newTranscriptAggregator() *transcriptAggregator {
	return &transcriptAggregator{}
}

func (a *transcriptAggregator) Add(event domain.TranscriptEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	if event.Kind == domain.TranscriptKindFinal {
		a.finals = append(a.finals, text)
		a.interim = ""
		return
	}
	a.interim = text
}

// Visible is what the user should see mid-dictation: all finals plus
// the pending interim, in arrival order.
func (a *transcriptAggregator) Visible() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.interim == "" {
		return strings.Join(a.finals, "\n")
	}
	if len(a.finals) == 0 {
		return a.interim
	}
	return strings.Join(a.finals, "\n") + "\n" + a.interim
}

// Transcript is the settled text once the stream ends. If the server
// never promoted anything to final, the last interim is kept rather
// than discarding speech the user already saw.
func (a *transcriptAggregator) Transcript() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.finals) == 0 {
		return a.interim
	}
	return strings.Join(a.finals, "\n")
}

func consumeTranscriptEvents(
	stream ports.SpeechStream,
	aggregator *transcriptAggregator,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	for event := range stream.Events() {
		text := strings.TrimSpace(event.Text)
		if text == "" {
			continue
		}
		aggregator.Add(event)
		if event.Kind == domain.TranscriptKindInterim {
			events.InterimTranscript(aggregator.Visible())
		} else {
			events.TranscriptChanged(aggregator.Visible())
		}
	}
}
