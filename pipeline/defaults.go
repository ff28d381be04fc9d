package pipeline

import (
	"sync/atomic"

	"github.com/kbukum/seqkit/logger"
	"github.com/kbukum/seqkit/observability"
	"github.com/kbukum/seqkit/validation"
)

// Built-in defaults used until SetDefaults is called.
const (
	DefaultBufferSize    = 16
	DefaultGroupCapacity = 4
)

// Settings are process-wide defaults for operators that take an optional
// size and for terminal instrumentation.
type Settings struct {
	// BufferSize is the prefetch depth of Buffer(p, 0).
	BufferSize int
	// GroupCapacity is the initial capacity of each grouping's buffer.
	GroupCapacity int
	// TraceTerminals opens a span named pipeline.<Operation> around every
	// terminal operation.
	TraceTerminals bool
	// Metrics is used by Measured when it is given nil instruments.
	Metrics *observability.PipelineMetrics
}

var settings atomic.Pointer[Settings]

func init() {
	settings.Store(&Settings{
		BufferSize:    DefaultBufferSize,
		GroupCapacity: DefaultGroupCapacity,
	})
}

// Defaults returns the current settings.
func Defaults() Settings {
	return *settings.Load()
}

// SetDefaults replaces the current settings. Zero sizes select the built-in
// defaults; negative sizes panic with an INVALID_ARGUMENT error.
func SetDefaults(s Settings) {
	mustValidate(validation.New().
		NonNegative("buffer_size", s.BufferSize).
		NonNegative("group_capacity", s.GroupCapacity))
	if s.BufferSize == 0 {
		s.BufferSize = DefaultBufferSize
	}
	if s.GroupCapacity == 0 {
		s.GroupCapacity = DefaultGroupCapacity
	}
	settings.Store(&s)

	log().Debug("pipeline defaults updated", logger.Fields(
		"buffer_size", s.BufferSize,
		"group_capacity", s.GroupCapacity,
		"trace_terminals", s.TraceTerminals,
		"metrics", s.Metrics != nil,
	))
}

func log() *logger.Logger {
	return logger.Get("pipeline")
}
