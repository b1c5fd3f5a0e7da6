package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

type Quality string

// QualityBest asks for the best single-file format, no separate audio/video merge.
const QualityBest Quality = "best"

type FetchRequest struct {
	URL     string
	Quality Quality
	// Dir is a staging directory owned by this request only.
	Dir string
}

type FetchResult struct {
	Path  string
	Title string
}

type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (*FetchResult, error)
}

// FetchError is the only error shape a fetch produces. Reason is safe to show
// to the requester.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "fetch failed: " + e.Reason
	}
	return fmt.Sprintf("fetch failed: %s: %v", e.Reason, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

const (
	maxReasonLength = 300

	ReasonTimedOut = "timed out"
	ReasonCanceled = "the bot is restarting, please send the link again"
)

// contextFailure maps a done context to its FetchError, or returns nil.
func contextFailure(err error) *FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Reason: ReasonTimedOut, Err: err}
	case errors.Is(err, context.Canceled):
		return &FetchError{Reason: ReasonCanceled, Err: err}
	default:
		return nil
	}
}

// AsFetchError normalizes any fetch failure. Deadline overruns become
// ReasonTimedOut and cancellation becomes ReasonCanceled.
func AsFetchError(err error, stagingDir string) *FetchError {
	if fe := contextFailure(err); fe != nil {
		return fe
	}
	var fe *FetchError
	switch {
	case errors.As(err, &fe):
		return &FetchError{Reason: Sanitize(fe.Reason, stagingDir), Err: fe.Err}
	default:
		return &FetchError{Reason: Sanitize(err.Error(), stagingDir), Err: err}
	}
}

// Sanitize keeps the last "ERROR:" line of tool output, strips local paths
// and caps the length.
func Sanitize(reason, stagingDir string) string {
	lines := strings.Split(strings.TrimSpace(reason), "\n")
	picked := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if picked == "" {
			picked = line
		}
		if strings.HasPrefix(line, "ERROR:") {
			picked = line
			break
		}
	}
	picked = strings.TrimSpace(strings.TrimPrefix(picked, "ERROR:"))

	if stagingDir != "" {
		picked = strings.ReplaceAll(picked, stagingDir, "")
	}
	if utf8.RuneCountInString(picked) > maxReasonLength {
		picked = string([]rune(picked)[:maxReasonLength]) + "…"
	}
	if picked == "" {
		return "unknown error"
	}
	return picked
}
