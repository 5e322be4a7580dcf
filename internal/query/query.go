// Package query implements the User Query (UQ) stage: validating and
// trimming the raw utterance and attaching the timezone it will be
// resolved against.
package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nlevents/calpipe/internal/types"
)

var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrQueryTooLong     = errors.New("query exceeds maximum length")
	ErrInvalidTimezone = errors.New("timezone is not a recognized IANA zone")
)

// MaxQueryLength bounds the raw utterance; long inputs are rejected
// rather than silently truncated, since truncation could drop the part
// of the sentence that carries the date/time phrase.
const MaxQueryLength = 2000

// New validates and trims the raw query, resolves the timezone, and
// returns the immutable UserQuery the rest of the pipeline threads
// through unchanged.
func New(rawQuery, timezone string) (types.UserQuery, *time.Location, error) {
	trimmed := strings.TrimSpace(rawQuery)
	if trimmed == "" {
		return types.UserQuery{}, nil, fmt.Errorf("%w", ErrEmptyQuery)
	}
	if len(trimmed) > MaxQueryLength {
		return types.UserQuery{}, nil, fmt.Errorf("%w: %d characters", ErrQueryTooLong, len(trimmed))
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return types.UserQuery{}, nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimezone, timezone, err)
	}

	return types.UserQuery{Query: trimmed, Timezone: timezone}, loc, nil
}
