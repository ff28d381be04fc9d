package config

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/seqkit/errors"
	"github.com/kbukum/seqkit/logger"
	"github.com/kbukum/seqkit/observability"
	"github.com/kbukum/seqkit/pipeline"
	"github.com/kbukum/seqkit/util"
	"github.com/kbukum/seqkit/validation"
)

// PipelineConfig tunes engine-wide defaults.
type PipelineConfig struct {
	// BufferSize is the prefetch depth Buffer uses when given a size of zero.
	BufferSize int `yaml:"buffer_size" mapstructure:"buffer_size" json:"buffer_size" validate:"gte=0,lte=65536"`
	// GroupCapacity is the initial capacity of each grouping's element buffer.
	GroupCapacity int `yaml:"group_capacity" mapstructure:"group_capacity" json:"group_capacity" validate:"gte=0,lte=65536"`
	// TraceTerminals opens a span around every terminal operation.
	TraceTerminals bool `yaml:"trace_terminals" mapstructure:"trace_terminals" json:"trace_terminals"`
}

// ApplyDefaults fills unset pipeline settings.
func (c *PipelineConfig) ApplyDefaults() {
	if c.BufferSize == 0 {
		c.BufferSize = pipeline.DefaultBufferSize
	}
	if c.GroupCapacity == 0 {
		c.GroupCapacity = pipeline.DefaultGroupCapacity
	}
}

// Config is the complete engine configuration.
type Config struct {
	Base      BaseConfig           `yaml:"base" mapstructure:"base" json:"base"`
	Logging   logger.Config        `yaml:"logging" mapstructure:"logging" json:"logging"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry" json:"telemetry"`
	Pipeline  PipelineConfig       `yaml:"pipeline" mapstructure:"pipeline" json:"pipeline"`
}

// ApplyDefaults applies defaults to every section.
func (c *Config) ApplyDefaults() {
	c.Base.ApplyDefaults()
	c.Logging.ApplyDefaults()
	if c.Base.Debug && c.Logging.Level == "info" {
		c.Logging.Level = "debug"
	}
	c.Telemetry.ServiceName = util.Coalesce(c.Telemetry.ServiceName, c.Base.Name)
	c.Telemetry.ServiceVersion = util.Coalesce(c.Telemetry.ServiceVersion, c.Base.Version)
	c.Telemetry.Environment = util.Coalesce(c.Telemetry.Environment, c.Base.Environment)
	c.Telemetry.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
}

// Validate checks struct tags first, then each section's own rules. Any
// failure is reported as an INVALID_CONFIG error.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return errors.InvalidConfig("config failed validation").WithCause(err)
	}
	checks := []struct {
		section string
		fn      func() error
	}{
		{"base", c.Base.Validate},
		{"logging", c.Logging.Validate},
		{"telemetry", c.Telemetry.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return errors.InvalidConfig(fmt.Sprintf("%s section is invalid", check.section)).
				WithCause(err).
				WithDetail("section", check.section)
		}
	}
	return nil
}

// Load reads configuration for serviceName, applies defaults and validates.
func Load(serviceName string, opts ...LoaderOption) (*Config, error) {
	cfg := &Config{Base: BaseConfig{Name: serviceName}}
	if err := LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, errors.InvalidConfig("loading configuration").WithCause(err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init applies cfg process-wide: it initializes the global logger, installs
// OpenTelemetry providers when telemetry is enabled and sets the pipeline
// defaults. The returned shutdown flushes and stops the providers.
func Init(ctx context.Context, cfg *Config) (shutdown func(context.Context) error, err error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Init(&cfg.Logging)
	log := logger.WithComponent("config")

	var shutdowns []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return stderrors.Join(errs...)
	}

	settings := pipeline.Settings{
		BufferSize:     cfg.Pipeline.BufferSize,
		GroupCapacity:  cfg.Pipeline.GroupCapacity,
		TraceTerminals: cfg.Pipeline.TraceTerminals,
	}

	if cfg.Telemetry.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("initializing tracer: %w", err)
		}
		shutdowns = append(shutdowns, tp.Shutdown)

		mp, err := observability.InitMeter(ctx, cfg.Telemetry)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("initializing meter: %w", err)
		}
		shutdowns = append(shutdowns, mp.Shutdown)

		metrics, err := observability.NewPipelineMetrics(observability.Meter(cfg.Telemetry.ServiceName))
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("creating pipeline metrics: %w", err)
		}
		settings.Metrics = metrics
	}

	pipeline.SetDefaults(settings)

	log.Info("engine configured", logger.Fields(
		"service", cfg.Base.Name,
		"environment", cfg.Base.Environment,
		"buffer_size", cfg.Pipeline.BufferSize,
		"telemetry", cfg.Telemetry.Enabled,
	))

	return shutdown, nil
}
