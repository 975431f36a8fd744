package hillshade

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest marks a malformed tile request. It is returned before any I/O.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnsupportedZoomDelta is returned for tiles finer than the source zoom.
	ErrUnsupportedZoomDelta = errors.New("unsupported zoom delta")

	ErrSourceUnavailable = errors.New("elevation source unavailable")

	// ErrNoData means the window does not intersect any source data. It is not retried.
	ErrNoData = fmt.Errorf("%w: no data in window", ErrSourceUnavailable)

	ErrCacheIO = errors.New("cache i/o error")
)

// ErrorReporter receives unexpected errors for out-of-band tracking.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

type nopReporter struct{}

func (nopReporter) Report(context.Context, error) {}

// NopReporter discards every report.
func NopReporter() ErrorReporter {
	return nopReporter{}
}

// expected reports whether err is part of the documented error taxonomy
// and therefore not worth reporting.
func expected(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnsupportedZoomDelta) ||
		errors.Is(err, ErrNoData) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
