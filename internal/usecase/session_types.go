package usecase

import (
	"herelaw/internal/ports"
)

// activeDictation holds the moving parts of one live dictation: the
// capture session, the open speech stream, and the goroutines draining
// them. generation pins the consultation epoch it belongs to so results
// arriving after a reset or logout are discarded.
type activeDictation struct {
	cancel     func()
	audio      ports.AudioSession
	stream     ports.SpeechStream
	generation uint64

	aggregator *transcriptAggregator
	eventsDone chan struct{}
	audioDone  chan struct{}
}
