// Package config loads and validates seqkit engine configuration.
//
// LoadConfig resolves a config.yml and a .env file from standard locations,
// reads the YAML with Viper and applies environment overrides. Every
// UPPER_SNAKE variable is bound under all of its nested key variants, so
// PIPELINE_BUFFER_SIZE overrides pipeline.buffer_size.
//
// # Usage
//
//	cfg, err := config.Load("etl")
//	shutdown, err := config.Init(ctx, cfg)
//	defer shutdown(ctx)
package config
