// Package logger provides structured logging for seqkit using zerolog.
//
// It supports JSON and console output formats, level configuration, and
// component-scoped loggers with structured fields. The pipeline package
// logs through the component logger registered as "pipeline".
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline")
//	log.Debug("iterator closed", logger.Fields("elements", 12))
package logger
