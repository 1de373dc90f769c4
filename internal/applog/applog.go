// Package applog builds the runtime's logging helper. The runtime logs
// per-plugin lifecycle outcomes through a kratos log.Helper configured with
// the standard service fields.
package applog

import (
	"os"

	"github.com/go-kratos/kratos/v2/log"
)

// New returns a helper writing to standard output with timestamp, caller,
// and service name fields attached to every record.
func New(serviceName string) *log.Helper {
	logger := log.With(
		log.NewStdLogger(os.Stdout),
		"timestamp", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", serviceName,
	)
	return log.NewHelper(logger)
}

// NewWith wraps an externally supplied logger, for hosts that already carry
// one.
func NewWith(logger log.Logger) *log.Helper {
	return log.NewHelper(logger)
}

// Discard returns a helper that drops every record, for tests.
func Discard() *log.Helper {
	return log.NewHelper(log.NewStdLogger(discardWriter{}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
