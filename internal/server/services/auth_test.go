package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/accountd/accountd/internal/common"
	"github.com/accountd/accountd/internal/cryptox"
	"github.com/accountd/accountd/internal/server/models"
)

type fakeIssuer struct {
	createdFor  []string
	createErr   error
	invalidated []string
}

func (f *fakeIssuer) Create(ctx context.Context, username string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdFor = append(f.createdFor, username)
	return "issued-token", nil
}

func (f *fakeIssuer) Invalidate(ctx context.Context, token string) error {
	f.invalidated = append(f.invalidated, token)
	return nil
}

func newAuthService(t *testing.T, repo *fakeAccountRepo, issuer *fakeIssuer) *AuthService {
	t.Helper()
	return NewAuthService(nil, &fakeRepoManager{accounts: repo}, issuer, testLogger())
}

func TestLogin_Success(t *testing.T) {
	hash, err := cryptox.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("error hashing password: %v", err)
	}
	repo := &fakeAccountRepo{getOut: &models.Account{Username: "sal", PasswordHash: hash}}
	issuer := &fakeIssuer{}
	s := newAuthService(t, repo, issuer)

	token, err := s.Login(context.Background(), "sal", "hunter2")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if token != "issued-token" {
		t.Fatalf("unexpected token %q", token)
	}
	if len(issuer.createdFor) != 1 || issuer.createdFor[0] != "sal" {
		t.Fatalf("session was not issued for sal: %v", issuer.createdFor)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := cryptox.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("error hashing password: %v", err)
	}
	repo := &fakeAccountRepo{getOut: &models.Account{Username: "sal", PasswordHash: hash}}
	issuer := &fakeIssuer{}
	s := newAuthService(t, repo, issuer)

	_, err = s.Login(context.Background(), "sal", "wrong")
	if !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Fatalf("want common.ErrorInvalidCredentials, got %v", err)
	}
	if len(issuer.createdFor) != 0 {
		t.Fatal("no session may be issued on a failed login")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	repo := &fakeAccountRepo{getErr: common.ErrorNotFound}
	s := newAuthService(t, repo, &fakeIssuer{})

	_, err := s.Login(context.Background(), "ghost", "hunter2")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

// A failed login for an unknown username must cost a password verification
// just like a wrong password does, or the latency difference would reveal
// which usernames exist.
func TestLogin_UnknownUserPaysHashingCost(t *testing.T) {
	hash, err := cryptox.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("error hashing password: %v", err)
	}

	measure := func(repo *fakeAccountRepo) time.Duration {
		s := newAuthService(t, repo, &fakeIssuer{})
		best := time.Duration(1<<63 - 1)
		for i := 0; i < 3; i++ {
			start := time.Now()
			if _, err := s.Login(context.Background(), "sal", "wrong"); err == nil {
				t.Fatal("login was expected to fail")
			}
			if d := time.Since(start); d < best {
				best = d
			}
		}
		return best
	}

	wrongPassword := measure(&fakeAccountRepo{getOut: &models.Account{Username: "sal", PasswordHash: hash}})
	unknownUser := measure(&fakeAccountRepo{getErr: common.ErrorNotFound})

	// Both paths run argon2id, so neither may be an order of magnitude
	// cheaper than the other.
	if unknownUser*10 < wrongPassword {
		t.Fatalf("unknown-user failure (%v) is far cheaper than wrong-password failure (%v)", unknownUser, wrongPassword)
	}
	if wrongPassword*10 < unknownUser {
		t.Fatalf("wrong-password failure (%v) is far cheaper than unknown-user failure (%v)", wrongPassword, unknownUser)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	s := newAuthService(t, &fakeAccountRepo{}, &fakeIssuer{})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"no username", "", "hunter2"},
		{"no password", "sal", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, common.ErrorMissingField) {
				t.Fatalf("want common.ErrorMissingField, got %v", err)
			}
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	issuer := &fakeIssuer{}
	s := newAuthService(t, &fakeAccountRepo{}, issuer)

	if err := s.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if len(issuer.invalidated) != 1 || issuer.invalidated[0] != "tok" {
		t.Fatalf("token was not revoked: %v", issuer.invalidated)
	}
}
