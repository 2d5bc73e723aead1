package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dbkeeper/internal/common"
	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// ProvisionError reports a daemon-side failure for one record. Err carries
// a common sentinel (ErrImagePullFailed, ErrContainerCreateFailed,
// ErrHealthCheckTimeout or ErrDaemonUnavailable) reachable with errors.Is.
type ProvisionError struct {
	RecordID string
	Stage    models.Stage
	Err      error
	// Warnings are cleanup failures that followed the primary error.
	Warnings []error
}

func (e *ProvisionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "record %s: %s: %v", e.RecordID, e.Stage, e.Err)
	if n := len(e.Warnings); n > 0 {
		fmt.Fprintf(&b, " (%d cleanup warning(s))", n)
	}
	return b.String()
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// Warning joins all cleanup warnings, or returns nil.
func (e *ProvisionError) Warning() error {
	return errors.Join(e.Warnings...)
}

// classes orders sentinels from most to least specific.
var classes = []struct {
	err   error
	class string
}{
	{common.ErrDaemonUnavailable, "daemon_unavailable"},
	{common.ErrImagePullFailed, "image_pull_failed"},
	{common.ErrContainerCreateFailed, "container_create_failed"},
	{common.ErrHealthCheckTimeout, "health_check_timeout"},
	{common.ErrValidation, "validation"},
	{common.ErrUnknownKind, "unknown_kind"},
	{context.Canceled, "canceled"},
}

// ErrorClass names the category of err without exposing its text.
func ErrorClass(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range classes {
		if errors.Is(err, c.err) {
			return c.class
		}
	}
	return "other"
}

// daemonErr wraps a daemon failure with kind unless the daemon was simply
// unreachable, which keeps its own sentinel.
func daemonErr(kind error, op string, err error) error {
	if errors.Is(err, common.ErrDaemonUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}
