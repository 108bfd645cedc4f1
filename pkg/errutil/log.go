// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package errutil

import (
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs an error at error level with structured oops context.
func LogError(logger *slog.Logger, msg string, err error) {
	logWith(logger.Error, msg, err)
}

// LogWarn logs an error at warning level with structured oops context.
// For conditions that are expected in normal operation but worth seeing.
func LogWarn(logger *slog.Logger, msg string, err error) {
	logWith(logger.Warn, msg, err)
}

// logWith extracts message, code and context from oops errors; standard
// errors log as their error string.
func logWith(log func(string, ...any), msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		log(msg, "error", err)
		return
	}

	attrs := []any{
		"error", oopsErr.Error(),
	}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	log(msg, attrs...)
}
