package clog

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
)

// statusClientClosed is the nginx convention for a client that hung up.
const statusClientClosed = 499

// StatusLevel is the access log level for a response status. Rejected client
// input is a warning; only server faults are errors.
func StatusLevel(status int) slog.Level {
	switch {
	case status == statusClientClosed:
		return slog.LevelInfo
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case status >= 100:
		return slog.LevelInfo
	}
	return slog.LevelError
}

// CodeLevel is the level an error with code is reported at. Errors at
// slog.LevelError also carry a stack trace.
func CodeLevel(code connect.Code) slog.Level {
	switch code {
	case connect.CodeCanceled,
		connect.CodeInvalidArgument,
		connect.CodeDeadlineExceeded,
		connect.CodeNotFound,
		connect.CodeAlreadyExists,
		connect.CodePermissionDenied,
		connect.CodeFailedPrecondition,
		connect.CodeAborted,
		connect.CodeOutOfRange,
		connect.CodeUnauthenticated:
		return slog.LevelInfo
	}
	return slog.LevelError
}
