package domain

import "errors"

// ErrUnauthorized marks any 401 from the backend. Observing it anywhere
// forces a logout: stored credentials and session state are cleared.
var ErrUnauthorized = errors.New("authentication required")
