// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// LogTransport wraps an http.RoundTripper and logs every outgoing request
// using Logrus: method, path, status and duration.
type LogTransport struct {
	Next   http.RoundTripper
	Logger *logrus.Logger
}

// NewLogTransport returns a LogTransport around next, or around
// http.DefaultTransport when next is nil.
func NewLogTransport(next http.RoundTripper, logger *logrus.Logger) *LogTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogTransport{Next: next, Logger: logger}
}

func (t *LogTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Next.RoundTrip(r)
	duration := time.Since(start)

	fields := logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"duration": duration,
	}
	if err != nil {
		t.Logger.WithFields(fields).WithError(err).Warn("HTTP request failed")
		return nil, err
	}
	fields["status"] = resp.StatusCode
	entry := t.Logger.WithFields(fields)
	if resp.StatusCode >= http.StatusInternalServerError {
		entry.Warn("HTTP request")
	} else {
		entry.Debug("HTTP request")
	}
	return resp, nil
}

// LogSocketConnect logs a message when a realtime socket is established.
func LogSocketConnect(logger *logrus.Logger, url string, version string) {
	logger.WithFields(logrus.Fields{
		"url":     url,
		"version": version,
	}).Info("WebSocket connected")
}

// LogSocketDisconnect logs a message when a realtime socket closes.
func LogSocketDisconnect(logger *logrus.Logger, url string, err error) {
	fields := logrus.Fields{
		"url": url,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
