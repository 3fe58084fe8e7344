package catalog

import (
	"errors"
	"fmt"
)

// ErrNoResults is returned when the catalog has nothing left that passes
// the current bans, or when every attempt came back empty.
var ErrNoResults = errors.New("no artworks match the current bans")

// StatusError reports a non-2xx catalog response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to fetch artwork: catalog status %d", e.Code)
}
