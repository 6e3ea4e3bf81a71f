package usecase

import "sync"

// ratingLedger records which sessions have already been rated. A
// submission reserves the session with Begin before the network call
// and settles it with Commit or Abort, so concurrent submissions for
// the same session admit at most one and a failed submission can be
// retried.
type ratingLedger struct {
	mu       sync.Mutex
	accepted map[string]int
	pending  map[string]struct{}
}

func newRatingLedger() *ratingLedger {
	return &ratingLedger{
		accepted: make(map[string]int),
		pending:  make(map[string]struct{}),
	}
}

// Begin reserves the session for a rating submission. It reports false
// when the session is already rated or another submission is in flight.
func (l *ratingLedger) Begin(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accepted[sessionID]; ok {
		return false
	}
	if _, ok := l.pending[sessionID]; ok {
		return false
	}
	l.pending[sessionID] = struct{}{}
	return true
}

// Commit settles a reservation made by Begin after the backend accepted
// the rating.
func (l *ratingLedger) Commit(sessionID string, rating int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, sessionID)
	l.accepted[sessionID] = rating
}

// Abort releases a reservation made by Begin so the rating can be
// retried after a failed submission.
func (l *ratingLedger) Abort(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, sessionID)
}

func (l *ratingLedger) Rated(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accepted[sessionID]
	return ok
}

func (l *ratingLedger) Record(sessionID string, rating int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accepted[sessionID] = rating
}

func (l *ratingLedger) Get(sessionID string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rating, ok := l.accepted[sessionID]
	return rating, ok
}
