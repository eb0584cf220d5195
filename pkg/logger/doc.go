// Package logger provides a structured logging interface for the scraper.
//
// It wraps the zerolog library to provide a clean API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output plus optional file output
// - A capturing TestLogger so tests can assert on emitted events
//
// Basic Usage:
//
//	import "nhkeasy/pkg/logger"
//
//	cfg := &config.LoggingConfig{Level: "info"}
//	err := logger.Initialize(cfg)
//
//	log := logger.GetLogger()
//	log.Info("pipeline started")
//	log.WithField("news_id", id).Info("article extracted")
//	log.WithError(err).Error("image download failed")
package logger
