// internal/middleware/logging_test.go
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func status(code int) roundTripFunc {
	return func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: http.NoBody, Request: r}, nil
	}
}

func TestLogTransportLevels(t *testing.T) {
	for _, tc := range []struct {
		code  int
		level logrus.Level
	}{
		{http.StatusOK, logrus.DebugLevel},
		{http.StatusNotFound, logrus.DebugLevel},
		{http.StatusBadGateway, logrus.WarnLevel},
	} {
		logger, hook := test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		rt := NewLogTransport(status(tc.code), logger)

		resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.test/lobbies/l1", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.code, resp.StatusCode)

		e := hook.LastEntry()
		require.NotNil(t, e)
		assert.Equal(t, tc.level, e.Level)
		assert.Equal(t, tc.code, e.Data["status"])
		assert.Equal(t, "/lobbies/l1", e.Data["path"])
		assert.Equal(t, http.MethodGet, e.Data["method"])
	}
}

func TestLogTransportError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	boom := errors.New("connection refused")
	rt := NewLogTransport(roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, boom }), logger)

	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodPost, "http://api.test/api/auth/login", nil))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, boom)

	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, logrus.WarnLevel, e.Level)
	assert.Equal(t, boom, e.Data[logrus.ErrorKey])
	assert.NotContains(t, e.Data, "status")
}

func TestSocketLogging(t *testing.T) {
	logger, hook := test.NewNullLogger()
	LogSocketConnect(logger, "api.test/ws/websocket", "1.2")
	LogSocketDisconnect(logger, "api.test/ws/websocket", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "1.2", entries[0].Data["version"])
	assert.NotContains(t, entries[1].Data, "error")
}
