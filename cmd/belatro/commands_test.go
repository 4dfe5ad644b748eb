// cmd/belatro/commands_test.go
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jason-s-yu/belatro/internal/api"
	"github.com/jason-s-yu/belatro/internal/config"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/jason-s-yu/belatro/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenDeleteStore fails every Delete of a lobby password.
type brokenDeleteStore struct {
	*session.MemoryStore
}

func (s brokenDeleteStore) Delete(ctx context.Context, key string) error {
	if strings.HasPrefix(key, session.KeyLobbyPasswords) {
		return errors.New("disk full")
	}
	return s.MemoryStore.Delete(ctx, key)
}

type routes map[string]http.HandlerFunc

// newTestApp returns an app logged in as ana (u1) talking to a server that
// dispatches on "METHOD path".
func newTestApp(t *testing.T, store session.Store, r routes) (*app, *bytes.Buffer, *test.Hook, func() []string) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		key := req.Method + " " + req.URL.Path
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
		h, ok := r[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, req)
	}))
	t.Cleanup(srv.Close)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	if store == nil {
		store = session.NewMemoryStore()
	}
	sess := session.New(store, clockwork.NewFakeClock(), logger)
	require.NoError(t, sess.Login(context.Background(), &models.AuthResponse{
		Token: "tok",
		User:  models.UserRef{ID: "u1", Username: "ana"},
	}))
	client, err := api.NewClient(srv.URL, sess, logger)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	a := &app{
		cfg:   config.Default(),
		log:   logger,
		sess:  sess,
		api:   client,
		out:   out,
		stdin: bufio.NewReader(strings.NewReader("")),
	}
	requests := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), seen...)
	}
	return a, out, hook, requests
}

func jsonReply(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestLobbyShowsMatchOnceClosed(t *testing.T) {
	a, out, _, _ := newTestApp(t, nil, routes{
		"GET /lobbies/l1":                   jsonReply(`{"id":"l1","name":"friday","status":"CLOSED","hostUser":{"id":"u2","username":"bruno"}}`),
		"GET /matches/getmatchbylobbyid/l1": jsonReply(`{"id":"m9","gameMode":"CASUAL"}`),
		"GET /lobbies/l2":                   jsonReply(`{"id":"l2","name":"open","status":"WAITING","hostUser":{"id":"u2","username":"bruno"}}`),
		"GET /lobbies/l3":                   jsonReply(`{"id":"l3","name":"gone","status":"CLOSED","hostUser":{"id":"u2","username":"bruno"}}`),
	})
	ctx := context.Background()

	require.NoError(t, cmdLobby(ctx, a, []string{"l1"}))
	assert.Contains(t, out.String(), "join with: belatro play m9")

	out.Reset()
	require.NoError(t, cmdLobby(ctx, a, []string{"l2"}))
	assert.NotContains(t, out.String(), "belatro play")

	out.Reset()
	require.NoError(t, cmdLobby(ctx, a, []string{"l3"}))
	assert.Contains(t, out.String(), "lobby is closed")
}

func TestLobbyWaitingDoesNotLookUpMatch(t *testing.T) {
	a, _, _, requests := newTestApp(t, nil, routes{
		"GET /lobbies/l2": jsonReply(`{"id":"l2","name":"open","status":"WAITING","hostUser":{"id":"u2","username":"bruno"}}`),
	})
	require.NoError(t, cmdLobby(context.Background(), a, []string{"l2"}))
	assert.Equal(t, []string{"GET /lobbies/l2"}, requests())
}

func TestProfileUpdatesUserAndSession(t *testing.T) {
	var sent models.UserUpdate
	a, out, _, _ := newTestApp(t, nil, routes{
		"GET /user/u1": jsonReply(`{"id":"u1","username":"ana","email":"ana@example.com"}`),
		"PUT /user/u1": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(models.User{ID: "u1", Username: sent.Username, Email: sent.Email})
		},
	})

	require.NoError(t, cmdProfile(context.Background(), a, []string{"-username", "ana_b", "-password", "pw"}))
	assert.Equal(t, models.UserUpdate{Username: "ana_b", Email: "ana@example.com", PasswordHashed: "pw"}, sent)
	assert.Contains(t, out.String(), "profile updated: ana_b <ana@example.com>")

	u, err := a.sess.User()
	require.NoError(t, err)
	assert.Equal(t, models.UserRef{ID: "u1", Username: "ana_b"}, u)
}

func TestLobbyJoinRejectedLogsForgetFailure(t *testing.T) {
	store := brokenDeleteStore{session.NewMemoryStore()}
	a, _, hook, _ := newTestApp(t, store, routes{
		"POST /lobbies/join": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
	})
	ctx := context.Background()
	require.NoError(t, a.sess.RememberLobbyPassword(ctx, "l1", "stale"))

	err := cmdLobbyJoin(ctx, a, []string{"l1"})
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "failed to forget lobby password" {
			warned = true
			assert.Equal(t, "l1", e.Data["lobby_id"])
		}
	}
	assert.True(t, warned)
}
