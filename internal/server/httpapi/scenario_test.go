package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/server/services"
)

// memoryBackend is a stateful in-memory stand-in for the service layer, so
// the full signup-to-delete flow can be exercised end to end over HTTP.
type memoryBackend struct {
	accounts  map[string]*memoryAccount
	sessions  map[string]string
	nextToken int
}

type memoryAccount struct {
	password string
	data     string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{
		accounts: make(map[string]*memoryAccount),
		sessions: make(map[string]string),
	}
}

func (b *memoryBackend) SignUp(ctx context.Context, username, password, data string) (string, error) {
	if username == "" || password == "" {
		return "", common.ErrorMissingField
	}
	if _, ok := b.accounts[username]; ok {
		return "", common.ErrorAlreadyExists
	}
	b.accounts[username] = &memoryAccount{password: password, data: data}
	return fmt.Sprintf("Successfully signed up new user: %s", username), nil
}

func (b *memoryBackend) GetProfile(ctx context.Context, caller, target string) (*services.Profile, error) {
	if err := b.authorize(caller, target); err != nil {
		return nil, err
	}
	account, ok := b.accounts[target]
	if !ok {
		return nil, common.ErrorNotFound
	}
	profile := &services.Profile{Username: target}
	if strings.TrimSpace(account.data) != "" {
		var v any
		if err := json.Unmarshal([]byte(account.data), &v); err == nil {
			profile.Data = v
		} else {
			profile.Data = account.data
		}
	}
	return profile, nil
}

func (b *memoryBackend) UpdateProfile(ctx context.Context, caller, target, data string) error {
	if err := b.authorize(caller, target); err != nil {
		return err
	}
	account, ok := b.accounts[target]
	if !ok {
		return common.ErrorNotFound
	}
	account.data = data
	return nil
}

func (b *memoryBackend) DeleteAccount(ctx context.Context, caller, target string) error {
	if err := b.authorize(caller, target); err != nil {
		return err
	}
	if _, ok := b.accounts[target]; !ok {
		return common.ErrorNotFound
	}
	delete(b.accounts, target)
	for token, username := range b.sessions {
		if username == target {
			delete(b.sessions, token)
		}
	}
	return nil
}

func (b *memoryBackend) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", common.ErrorMissingField
	}
	account, ok := b.accounts[username]
	if !ok {
		return "", common.ErrorNotFound
	}
	if account.password != password {
		return "", common.ErrorInvalidCredentials
	}
	b.nextToken++
	token := fmt.Sprintf("token-%d", b.nextToken)
	b.sessions[token] = username
	return token, nil
}

func (b *memoryBackend) Logout(ctx context.Context, token string) error {
	delete(b.sessions, token)
	return nil
}

func (b *memoryBackend) Resolve(ctx context.Context, token string) (string, error) {
	return b.sessions[token], nil
}

func (b *memoryBackend) Validity() time.Duration { return 24 * time.Hour }

func (b *memoryBackend) authorize(caller, target string) error {
	if caller == "" {
		return common.ErrorUnauthenticated
	}
	if caller != target {
		return common.ErrorForbidden
	}
	return nil
}

func TestAccountLifecycleOverHTTP(t *testing.T) {
	backend := newMemoryBackend()
	h := newTestHandler(backend, backend, backend)

	do := func(method, path, token string, body string) *httptest.ResponseRecorder {
		t.Helper()
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if token != "" {
			req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
		}
		resp := httptest.NewRecorder()
		h.ServeHTTP(resp, req)
		return resp
	}

	// sign up
	resp := do(http.MethodPost, "/user", "", `{"username":"sal","password":"pw1","data":{"x":1}}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("signup: expected 200, got %d: %s", resp.Code, resp.Body)
	}

	// log in and capture the cookie
	resp = do(http.MethodPost, "/auth", "", `{"username":"sal","password":"pw1"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body)
	}
	token := findCookie(t, resp.Result().Cookies(), sessionCookieName).Value
	if token == "" {
		t.Fatal("login did not set a session token")
	}

	// fetch the profile
	resp = do(http.MethodGet, "/user/sal", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("get profile: expected 200, got %d: %s", resp.Code, resp.Body)
	}
	var profile services.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("error decoding profile: %v", err)
	}
	want := map[string]any{"x": float64(1)}
	if profile.Username != "sal" || !reflect.DeepEqual(profile.Data, want) {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	// another identity must be off limits
	resp = do(http.MethodGet, "/user/mallory", token, "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("cross-user get: expected 403, got %d", resp.Code)
	}

	// replace the profile data
	resp = do(http.MethodPut, "/user/sal", token, `{"y":2}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", resp.Code, resp.Body)
	}
	resp = do(http.MethodGet, "/user/sal", token, "")
	profile = services.Profile{}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("error decoding profile: %v", err)
	}
	want = map[string]any{"y": float64(2)}
	if !reflect.DeepEqual(profile.Data, want) {
		t.Fatalf("update did not round-trip: %+v", profile)
	}

	// delete the account; the session must stop resolving
	resp = do(http.MethodDelete, "/user/sal", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", resp.Code, resp.Body)
	}
	resp = do(http.MethodGet, "/", token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("root: expected 200, got %d", resp.Code)
	}
	var anon []string
	if err := json.NewDecoder(resp.Body).Decode(&anon); err != nil {
		t.Fatalf("expected anonymous payload after delete, got %s", resp.Body)
	}
	if len(anon) != 1 || anon[0] != "Hello World" {
		t.Fatalf("unexpected anonymous payload: %v", anon)
	}

	// the old credentials are gone too
	resp = do(http.MethodPost, "/auth", "", `{"username":"sal","password":"pw1"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("login after delete: expected 401, got %d", resp.Code)
	}
}
