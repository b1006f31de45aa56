package observe

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("observe: service name is required")

	// ErrInvalidSamplePct indicates Tracing.SamplePct is not in [0.0, 1.0].
	ErrInvalidSamplePct = errors.New("observe: sample percentage must be between 0.0 and 1.0")

	// ErrInvalidTracingExporter indicates an unknown tracing exporter name.
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")

	// ErrInvalidMetricsExporter indicates an unknown metrics exporter name.
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")

	// ErrInvalidLogFormat indicates an unknown log format.
	ErrInvalidLogFormat = errors.New("observe: invalid log format")
)

// ErrNilObserver indicates a nil Observer was provided.
var ErrNilObserver = errors.New("observe: observer is nil")

// Validation constants.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// RedactedFields lists field keys that are automatically redacted in logs.
var RedactedFields = []string{
	"password",
	"secret",
	"token",
	"dsn",
	"credential",
}
