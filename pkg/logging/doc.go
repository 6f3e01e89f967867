// Package logging provides structured logging configuration for wsbridge.
//
// This package wraps log/slog to provide consistent logging across all
// wsbridge components. It supports configurable log levels and output formats.
//
// # Usage
//
// Create a logger with desired configuration:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("websocket server started", "port", 8080)
//	logger.Error("failed to bind", "error", err)
//
// # Output Formats
//
//   - Text: Human-readable format for development
//   - JSON: Structured format for log aggregation systems
//
// Set Config.Mirror to also write JSON records to a second writer, such as a
// log file.
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via an
// option. If no logger is provided, use logging.Nop() for a no-op logger.
package logging
