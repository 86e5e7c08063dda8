package log

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport logs every outbound HTTP exchange. 4xx responses log at Warn,
// 5xx and transport failures at Error, everything else at Debug.
type Transport struct {
	Base   http.RoundTripper
	Logger *Logger
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base().RoundTrip(req)
	elapsed := time.Since(start).Milliseconds()

	fields := NewFields().WithOperation(OpFetch)
	fields[FieldMethod] = req.Method
	fields[FieldPath] = req.URL.Path

	if err != nil {
		fields[FieldDuration] = elapsed
		fields[FieldError] = err.Error()
		t.Logger.Log(req.Context(), slog.LevelError, "HTTP request failed", fields.ToSlice()...)
		return nil, err
	}

	level := slog.LevelDebug
	switch {
	case resp.StatusCode >= 500:
		level = slog.LevelError
	case resp.StatusCode >= 400:
		level = slog.LevelWarn
	}
	fields.WithHTTPResponse(resp.StatusCode, elapsed)
	t.Logger.Log(req.Context(), level, "HTTP request completed", fields.ToSlice()...)
	return resp, nil
}
