package engine

import (
	"context"
	"time"

	"github.com/kyleking/primitive-db/internal/logging"
	"github.com/kyleking/primitive-db/internal/policy"
)

// AutoConfirmer approves every action
type AutoConfirmer struct{}

// Confirm always returns true
func (AutoConfirmer) Confirm(context.Context, string) bool { return true }

type discardReporter struct{}

func (discardReporter) Failure(string, error)        {}
func (discardReporter) Cancelled(string)             {}
func (discardReporter) Elapsed(string, time.Duration) {}

// loggingReporter mirrors every diagnostic into the session log before
// passing it on
type loggingReporter struct {
	next   policy.Reporter
	logger *logging.Logger
}

func (r loggingReporter) Failure(op string, err error) {
	r.logger.WithField("op", op).WithError(err).Warn("Command failed")
	r.next.Failure(op, err)
}

func (r loggingReporter) Cancelled(op string) {
	r.logger.WithField("op", op).Info("Command cancelled")
	r.next.Cancelled(op)
}

func (r loggingReporter) Elapsed(op string, d time.Duration) {
	r.logger.WithFields(map[string]interface{}{
		"op":       op,
		"duration": d,
	}).Debug("Command timed")
	r.next.Elapsed(op, d)
}
