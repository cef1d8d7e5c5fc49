// Package logger provides the structured logging used across s3ripper.
//
// It wraps zerolog behind a small Logger interface with field-carrying child
// loggers. Console output is colorized and goes to stderr; setting
// logging.format to "json" switches to one JSON object per line, and
// logging.file additionally appends every entry to a file.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("collection_id", id)
//	log.InfoWithFields("Page fetched", map[string]interface{}{
//	    "page":  0,
//	    "items": 60,
//	})
//
// Access tokens and session ids must never be passed as fields; URLs are
// logged through RedactURL.
package logger
