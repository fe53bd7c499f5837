package log

import (
	"context"
	"log/slog"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	relaycontext "github.com/eventrelay/eventrelay/utils/context"
)

func InjectRequest(ctx context.Context, r *http.Request) context.Context {
	requestID, _ := relaycontext.GetRequestID(ctx)

	return slogctx.With(ctx,
		slog.String("requestId", requestID),
		slog.Group("requestData",
			slog.String("method", r.Method),
			slog.String("host", r.Host),
			slog.String("path", r.URL.Path),
		),
	)
}

// InjectRun tags every log line of one dispatcher batch run.
func InjectRun(ctx context.Context, runID string) context.Context {
	return slogctx.With(ctx, slog.String("runId", runID))
}

func InjectEvent(ctx context.Context, eventID string) context.Context {
	return slogctx.With(ctx, slog.String("eventId", eventID))
}

func ErrorAttr(err error) slog.Attr {
	return slog.Attr{
		Key:   slogctx.ErrKey,
		Value: slog.StringValue(err.Error()),
	}
}

func Debug(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelDebug, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelWarn, msg, args...)
}

func Info(ctx context.Context, msg string, args ...slog.Attr) {
	slogctx.LogAttrs(ctx, slog.LevelInfo, msg, args...)
}

func Error(ctx context.Context, msg string, err error, args ...slog.Attr) {
	args = append(args, slogctx.Err(err))

	slogctx.LogAttrs(ctx, slog.LevelError, msg, args...)
}
