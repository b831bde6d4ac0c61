package auth

import (
	"context"
	"testing"
	"time"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/session"
)

func newTestService() (*Service, *RecordingMailer) {
	m := &RecordingMailer{}
	return NewService(Options{Mailer: m}), m
}

func TestSignInFlow(t *testing.T) {
	ctx := context.Background()
	s, mail := newTestService()

	if err := s.RequestCode(ctx, " Alice@Example.com "); err != nil {
		t.Fatal(err)
	}
	code := mail.Last("alice@example.com")
	if len(code) != CodeLength {
		t.Fatalf("code %q should have %d digits", code, CodeLength)
	}

	sess, err := s.Verify(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Email != "alice@example.com" || sess.UserID != UserIDFor("alice@example.com") {
		t.Errorf("session = %+v", sess)
	}

	got, err := s.Authenticate(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if IdentityOf(got) != (Identity{UserID: sess.UserID, Email: sess.Email}) {
		t.Errorf("IdentityOf() = %+v", IdentityOf(got))
	}

	if err := s.Logout(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate(ctx, sess.ID); !errs.Is(err, errs.ErrCodeSessionExpired) {
		t.Errorf("Authenticate after logout error = %v, want SESSION_EXPIRED", err)
	}
}

func TestCodesAreSingleUse(t *testing.T) {
	ctx := context.Background()
	s, mail := newTestService()
	_ = s.RequestCode(ctx, "bob@example.com")
	code := mail.Last("bob@example.com")

	if _, err := s.Verify(ctx, "bob@example.com", code); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Verify(ctx, "bob@example.com", code); !errs.Is(err, errs.ErrCodeInvalidCode) {
		t.Errorf("second Verify error = %v, want INVALID_CODE", err)
	}
}

func TestVerifyErrors(t *testing.T) {
	ctx := context.Background()
	s, mail := newTestService()
	_ = s.RequestCode(ctx, "carol@example.com")
	code := mail.Last("carol@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	tests := []struct {
		name  string
		email string
		code  string
		want  errs.Code
	}{
		{"bad email", "carol", code, errs.ErrCodeInvalidEmail},
		{"no pending code", "dave@example.com", code, errs.ErrCodeInvalidCode},
		{"wrong code", "carol@example.com", wrong, errs.ErrCodeInvalidCode},
		{"burned by the wrong attempt", "carol@example.com", code, errs.ErrCodeInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Verify(ctx, tt.email, tt.code); !errs.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestRequestCodeRejectsBadEmail(t *testing.T) {
	s, _ := newTestService()
	if err := s.RequestCode(context.Background(), "Alice <a@example.com>"); !errs.Is(err, errs.ErrCodeInvalidEmail) {
		t.Errorf("RequestCode() error = %v, want INVALID_EMAIL", err)
	}
}

func TestAuthenticateRequiresToken(t *testing.T) {
	s, _ := newTestService()
	if _, err := s.Authenticate(context.Background(), ""); !errs.Is(err, errs.ErrCodeUnauthorized) {
		t.Errorf("Authenticate(\"\") error = %v, want UNAUTHORIZED", err)
	}
}

func TestUserIDForIsStable(t *testing.T) {
	a := UserIDFor("Alice@example.com")
	if a != UserIDFor(" alice@example.com") {
		t.Error("user IDs should ignore case and whitespace")
	}
	if a == UserIDFor("bob@example.com") {
		t.Error("different emails should get different IDs")
	}
}

func TestMemoryCodeStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCodeStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	_ = s.Put(ctx, "a@example.com", "123456", time.Minute)

	now = now.Add(2 * time.Minute)
	if ok, _ := s.Consume(ctx, "a@example.com", "123456"); ok {
		t.Error("expired code should not verify")
	}
}

func TestGenerateCode(t *testing.T) {
	for range 50 {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != CodeLength {
			t.Fatalf("GenerateCode() = %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("GenerateCode() = %q contains non-digits", code)
			}
		}
	}
}

func TestIdentityOfNil(t *testing.T) {
	if !IdentityOf((*session.Session)(nil)).IsZero() {
		t.Error("nil session should give the zero identity")
	}
}
