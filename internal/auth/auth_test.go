package auth

import (
	"context"
	"testing"
	"time"
)

func setSecret(t *testing.T) {
	t.Helper()
	t.Setenv("PAPERTRADE_AUTH_SECRET", "test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidateToken(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("user-1", "acct-1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-1" || claims.AccountID != "acct-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	setSecret(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := ParseAndValidate(token); err != ErrInvalidToken {
			t.Fatalf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	setSecret(t)

	token, err := GenerateToken("user-1", "acct-1", time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("PAPERTRADE_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := GenerateToken("user-1", "acct-1", time.Minute); err == nil {
		t.Fatal("expected error when secret is missing")
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	u, err := r.Register(ctx, "Trader@Example.com", "hunter2hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "trader@example.com" {
		t.Fatalf("email not normalised: %q", u.Email)
	}
	if u.AccountID == "" || u.ID == "" {
		t.Fatalf("missing ids: %+v", u)
	}

	got, err := r.Authenticate(ctx, "trader@example.com", "hunter2hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccountID != u.AccountID {
		t.Fatalf("account id changed between register and login")
	}

	if _, err := r.Authenticate(ctx, "trader@example.com", "wrong-password"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := r.Authenticate(ctx, "nobody@example.com", "hunter2hunter2"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	if _, err := r.Register(ctx, "no-at-sign", "hunter2hunter2"); err == nil {
		t.Fatal("expected error for invalid email")
	}
	if _, err := r.Register(ctx, "a@b.com", "short"); err == nil {
		t.Fatal("expected error for short password")
	}

	if _, err := r.Register(ctx, "a@b.com", "hunter2hunter2"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Register(ctx, "A@B.com", "hunter2hunter2"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestSessionContextRoundTrip(t *testing.T) {
	ctx := ContextWithSession(context.Background(), "user-1", "acct-1")

	if uid, ok := UserIDFromContext(ctx); !ok || uid != "user-1" {
		t.Fatalf("user id round trip failed: %q %v", uid, ok)
	}
	if acct, ok := AccountIDFromContext(ctx); !ok || acct != "acct-1" {
		t.Fatalf("account id round trip failed: %q %v", acct, ok)
	}
	if _, ok := AccountIDFromContext(context.Background()); ok {
		t.Fatal("empty context must not carry an account id")
	}
}
