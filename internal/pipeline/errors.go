package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/bookcastflow/internal/models"
)

var (
	ErrInvalidTransition   = errors.New("invalid stage transition")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrMalformedResponse   = errors.New("malformed upstream response")
	ErrRetriesExhausted    = errors.New("retries exhausted")
	ErrHandoff             = errors.New("stage hand-off failed")
	ErrDataIntegrity       = errors.New("data integrity violation")
	ErrTimeout             = errors.New("stage timed out")
	ErrNotFound            = errors.New("not found")
	ErrConfiguration       = errors.New("configuration error")
)

// markers lists the sentinels in classification priority order.
var markers = []struct {
	err  error
	name string
}{
	{ErrInvalidTransition, "INVALID_STAGE_TRANSITION"},
	{ErrDataIntegrity, "DATA_INTEGRITY"},
	{ErrHandoff, "HANDOFF_FAILED"},
	{ErrTimeout, "STAGE_TIMEOUT"},
	{ErrRetriesExhausted, "RETRIES_EXHAUSTED"},
	{ErrUpstreamUnavailable, "UPSTREAM_UNAVAILABLE"},
	{ErrMalformedResponse, "MALFORMED_RESPONSE"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrConfiguration, "CONFIGURATION"},
}

// Wrap builds an error message that includes stage context while tagging it
// with marker for later classification.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind names the first marker found in err, or "INTERNAL".
func Kind(err error) string {
	for _, m := range markers {
		if errors.Is(err, m.err) {
			return m.name
		}
	}
	return "INTERNAL"
}

// IsTransient reports whether err belongs to the retryable whitelist.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrMalformedResponse)
}

// StageError is the aggregate failure of one stage run. Succeeded and Failed
// count chapters so an operator can judge whether a re-run is safe.
type StageError struct {
	ProjectID string
	Stage     models.StageName
	Succeeded int
	Failed    int
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("project %s: stage %s: %d chapters succeeded, %d failed: %v",
		e.ProjectID, e.Stage, e.Succeeded, e.Failed, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
