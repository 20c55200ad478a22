package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gatherly/apiserver/internal/auth"
	"github.com/gatherly/apiserver/internal/services"
	"github.com/gatherly/apiserver/internal/storetest"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testNotifier is a switchable in-memory mail sink for handler tests.
type testNotifier struct {
	fail bool
	sent int
}

func (n *testNotifier) Send(_ context.Context, _, _, _ string) error {
	if n.fail {
		return errors.New("delivery failed")
	}
	n.sent++
	return nil
}

// testApp wires the full router over in-memory repositories, mirroring the
// production route layout.
type testApp struct {
	router   chi.Router
	users    *storetest.UserRepo
	events   *storetest.EventRepo
	subs     *storetest.SubscriptionRepo
	tokens   *auth.TokenService
	notifier *testNotifier
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	users := storetest.NewUserRepo()
	events := storetest.NewEventRepo()
	subs := storetest.NewSubscriptionRepo(users, events)
	notifier := &testNotifier{}
	logger := zerolog.Nop()

	userSvc := services.NewUserService(users, notifier, time.Second, logger)
	eventSvc := services.NewEventService(events, subs)
	subSvc := services.NewSubscriptionService(events, subs, notifier, time.Second, logger)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	router := chi.NewRouter()
	router.Route("/user", func(r chi.Router) {
		UserRouter(r, userSvc, tokens)
	})
	router.Route("/event", func(r chi.Router) {
		EventRouter(r, eventSvc, subSvc, Authenticate(tokens, userSvc))
	})

	return &testApp{
		router:   router,
		users:    users,
		events:   events,
		subs:     subs,
		tokens:   tokens,
		notifier: notifier,
	}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value))
	return value
}

// register signs a user up over HTTP and logs them in, returning the resource
// and a usable bearer token.
func (a *testApp) register(t *testing.T, name, email string, roles ...string) (UserResource, string) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/user/signup", "", map[string]any{
		"name":     name,
		"email":    email,
		"password": "s3cret",
		"roles":    roles,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	signup := decode[SignupResponse](t, rec)

	rec = a.do(t, http.MethodPost, "/user/login", "", map[string]any{
		"email":    email,
		"password": "s3cret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[LoginResponse](t, rec)

	return signup.User, login.Token
}
