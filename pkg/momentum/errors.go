package momentum

import (
	"errors"
	"fmt"

	"github.com/pumpwatch/pumpradar/pkg/source"
)

// ErrNoData means every configured source failed and the scan has nothing to
// process. This is the only data-related error fatal to a scan.
var ErrNoData = errors.New("no data available: all sources failed")

// ErrConfig marks invalid scan parameters, detected before a scan begins.
var ErrConfig = errors.New("invalid configuration")

// SourceError records a source that contributed nothing to a scan. It is
// surfaced through diagnostics, never returned as a scan failure on its own.
type SourceError struct {
	Source source.SourceType
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
