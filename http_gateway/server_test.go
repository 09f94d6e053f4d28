package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auth "fin-ledger/auth_service"
	database_methods "fin-ledger/database_methods_package"
	models "fin-ledger/models_package"
	trhr "fin-ledger/transactions_service/transactions_handler"
)

type testEnv struct {
	server *httptest.Server
	store  *database_methods.MemoryStore
	tokens *auth.TokenService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, storage Pinger) *testEnv {
	t.Helper()
	store := database_methods.NewMemoryStore("Alpha", "Beta")
	log := quietLogger()

	tokens, err := auth.NewTokenService([]byte("test-secret"), "HS256", 30*time.Minute)
	require.NoError(t, err)

	srv := NewServer(&Config{
		Auth: auth.NewGateway(store, auth.NewBcryptHasher(auth.MinBcryptCost), tokens, 0, log),
		Transfers: trhr.New(&trhr.Config{
			Tokens:       tokens,
			Users:        store,
			Banks:        store,
			Transactions: store,
			History:      store,
			Log:          log,
		}),
		Storage: storage,
		Log:     log,
	})
	router, err := srv.Router()
	require.NoError(t, err)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, store: store, tokens: tokens}
}

func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (e *testEnv) register(t *testing.T, name, password string) {
	t.Helper()
	resp, err := http.PostForm(e.server.URL+"/register", url.Values{"name": {name}, "password": {password}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func (e *testEnv) token(t *testing.T, subject string) string {
	t.Helper()
	token, _, err := e.tokens.Issue(subject, 0)
	require.NoError(t, err)
	return token
}

func transferForm(amount string) url.Values {
	return url.Values{
		"from_user":          {"alice"},
		"to_user":            {"bob"},
		"from_bank_name":     {"Alpha"},
		"to_bank_name":       {"Beta"},
		"from_card_number":   {"4000000000000001"},
		"to_card_number":     {"4000000000000002"},
		"transaction_amount": {amount},
	}
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRegisterLoginTransfer(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice", "pw1")

	// JSON bodies and the username alias are accepted too
	resp, err := http.Post(env.server.URL+"/register", "application/json",
		strings.NewReader(`{"username": "bob", "password": "pw2"}`))
	require.NoError(t, err)
	var registered struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
	}
	decode(t, resp, &registered)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "bob", registered.User.Name)

	client := env.client(t)
	resp, err = client.PostForm(env.server.URL+"/login", url.Values{"name": {"alice"}, "password": {"pw1"}})
	require.NoError(t, err)
	var token auth.Token
	decode(t, resp, &token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, auth.TokenType, token.TokenType)
	require.NotEmpty(t, token.AccessToken)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == AccessTokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, token.AccessToken, cookie.Value)

	resp, err = client.Get(env.server.URL + "/transaction")
	require.NoError(t, err)
	var form map[string]string
	decode(t, resp, &form)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", form["from_user"])

	resp, err = client.PostForm(env.server.URL+"/transaction", transferForm("500"))
	require.NoError(t, err)
	var created struct {
		Message     string             `json:"message"`
		Transaction models.Transaction `json:"transaction"`
	}
	decode(t, resp, &created)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Transaction created successfully!", created.Message)
	require.Equal(t, int64(500), created.Transaction.Amount)

	rows := env.store.Transactions()
	require.Len(t, rows, 1)
	require.Equal(t, int64(500), rows[0].Amount)
	require.Equal(t, "alice", rows[0].FromUser)
	require.Equal(t, "bob", rows[0].ToUser)

	resp, err = client.Get(env.server.URL + "/transactions?min_amount=100&limit=10")
	require.NoError(t, err)
	var history struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	decode(t, resp, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history.Transactions, 1)

	resp, err = client.Get(env.server.URL + "/transactions?min_amount=1000")
	require.NoError(t, err)
	decode(t, resp, &history)
	require.Empty(t, history.Transactions)
}

func TestBearerHeader(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice", "pw1")
	env.register(t, "bob", "pw2")

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/transaction",
		strings.NewReader(transferForm("42").Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+env.token(t, "alice"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, env.store.Transactions(), 1)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice", "pw1")
	client := env.client(t)

	resp, err := client.PostForm(env.server.URL+"/login", url.Values{"name": {"alice"}, "password": {"pw1"}})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(env.server.URL+"/logout", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(env.server.URL + "/transaction")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestErrorStatuses(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice", "pw1")
	env.register(t, "bob", "pw2")
	alice := env.token(t, "alice")

	withToken := func(token string, form url.Values) *http.Request {
		req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/transaction", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}
	post := func(path string, form url.Values) *http.Request {
		req, _ := http.NewRequest(http.MethodPost, env.server.URL+path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req
	}
	get := func(path, token string) *http.Request {
		req, _ := http.NewRequest(http.MethodGet, env.server.URL+path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}
	with := func(form url.Values, key, value string) url.Values {
		out := url.Values{}
		for k, v := range form {
			out[k] = v
		}
		out.Set(key, value)
		return out
	}

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"duplicate user", post("/register", url.Values{"name": {"alice"}, "password": {"other"}}), http.StatusBadRequest},
		{"missing password", post("/register", url.Values{"name": {"carol"}}), http.StatusBadRequest},
		{"wrong password", post("/login", url.Values{"name": {"alice"}, "password": {"nope"}}), http.StatusUnauthorized},
		{"unknown user", post("/login", url.Values{"name": {"mallory"}, "password": {"pw1"}}), http.StatusUnauthorized},
		{"no token", withToken("", transferForm("500")), http.StatusUnauthorized},
		{"garbage token", withToken("not.a.token", transferForm("500")), http.StatusUnauthorized},
		{"unknown recipient", withToken(alice, with(transferForm("500"), "to_user", "carol")), http.StatusBadRequest},
		{"self transfer", withToken(alice, with(transferForm("500"), "to_user", "alice")), http.StatusBadRequest},
		{"unknown bank", withToken(alice, with(transferForm("500"), "to_bank_name", "Gamma")), http.StatusNotFound},
		{"bad amount", withToken(alice, transferForm("five")), http.StatusBadRequest},
		{"missing field", withToken(alice, with(transferForm("500"), "to_card_number", "")), http.StatusBadRequest},
		{"form without token", get("/transaction", ""), http.StatusUnauthorized},
		{"bad history range", get("/transactions?from=yesterday", alice), http.StatusBadRequest},
		{"negative limit", get("/transactions?limit=-1", alice), http.StatusBadRequest},
		{"unknown route", get("/nowhere", ""), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.DefaultClient.Do(tc.req)
			require.NoError(t, err)
			resp.Body.Close()
			require.Equal(t, tc.want, resp.StatusCode)
			require.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		})
	}

	require.Empty(t, env.store.Transactions(), "no rejected transfer may leave a row")
}

func TestPasswordIsNotTrimmed(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "alice", "pw1")

	for _, password := range []string{" pw1 ", "  pw1  ", "pw1\n"} {
		resp, err := http.PostForm(env.server.URL+"/login", url.Values{"name": {"alice"}, "password": {password}})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%q", password)
	}

	// whitespace is part of the secret, both ways
	env.register(t, "carol", "   ")
	resp, err := http.PostForm(env.server.URL+"/login", url.Values{"name": {"carol"}, "password": {"   "}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.PostForm(env.server.URL+"/login", url.Values{"name": {"carol"}, "password": {""}})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterPasswordTooLong(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.PostForm(env.server.URL+"/register",
		url.Values{"name": {"alice"}, "password": {strings.Repeat("p", auth.MaxPasswordBytes+1)}})
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Password too long", body["error"])

	env.register(t, "alice", strings.Repeat("p", auth.MaxPasswordBytes))
}

func TestMalformedJSON(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Post(env.server.URL+"/register", "application/json", strings.NewReader(`{"name": `))
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body["error"], "malformed json")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, pinger{})
	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	var body map[string]string
	decode(t, resp, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])

	env = newTestEnv(t, pinger{err: errors.New("connection refused")})
	resp, err = http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestIDIsKept(t *testing.T) {
	env := newTestEnv(t, nil)
	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{fmt.Errorf("register: %w", models.ErrDuplicateUser), http.StatusBadRequest, "User already exists"},
		{models.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{fmt.Errorf("register: %w", models.ErrPasswordTooLong), http.StatusBadRequest, "Password too long"},
		{fmt.Errorf("%w: %w", models.ErrUnauthenticated, models.ErrInvalidToken), http.StatusUnauthorized, "Could not validate credentials"},
		{models.ErrInvalidRecipient, http.StatusBadRequest, "Invalid user send to"},
		{fmt.Errorf("%w: %q", models.ErrBankNotFound, "Gamma"), http.StatusNotFound, "Bank not found"},
		{fmt.Errorf("find user: %w: dial tcp", models.ErrStorageUnavailable), http.StatusServiceUnavailable, "Storage unavailable"},
		{errors.New("pq: secret detail"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		code, msg := statusOf(tc.err)
		require.Equal(t, tc.code, code, tc.err.Error())
		require.Equal(t, tc.msg, msg)
	}
}
