// Package auth implements sign-in with an emailed one-time code.
//
// A user asks for a code ([Service.RequestCode]), receives it through a
// [Mailer], and exchanges it for a session ([Service.Verify]). The session
// ID is the bearer token presented on later requests, which
// [Service.Authenticate] turns back into an [Identity].
//
// User IDs are derived from the email address, so the same address always
// maps to the same author across sign-ins and servers.
package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/memeforge/pkg/errors"
	"github.com/matzehuels/memeforge/pkg/session"
)

// Default durations.
const (
	// DefaultCodeTTL is how long an emailed code stays valid.
	DefaultCodeTTL = 10 * time.Minute

	// CodeLength is the number of digits in a sign-in code.
	CodeLength = 6
)

// userNamespace seeds the name-based UUIDs used as user IDs.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://memeforge.dev/users"))

// Identity is the signed-in user as seen by the feed.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IdentityOf returns the identity a session belongs to.
func IdentityOf(s *session.Session) Identity {
	if s == nil {
		return Identity{}
	}
	return Identity{UserID: s.UserID, Email: s.Email}
}

// IsZero reports whether no one is signed in.
func (id Identity) IsZero() bool { return id.UserID == "" }

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserIDFor returns the stable user ID for an email address.
func UserIDFor(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(NormalizeEmail(email))).String()
}

// GenerateCode returns a random numeric code of CodeLength digits.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// Options configures a Service.
type Options struct {
	Codes      CodeStore
	Sessions   session.Store
	Mailer     Mailer
	CodeTTL    time.Duration
	SessionTTL time.Duration
	Logger     *log.Logger
}

// Service issues codes and sessions.
type Service struct {
	codes      CodeStore
	sessions   session.Store
	mailer     Mailer
	codeTTL    time.Duration
	sessionTTL time.Duration
	logger     *log.Logger
}

// NewService creates a Service. Missing stores default to in-memory ones
// and a missing mailer logs codes.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Codes == nil {
		opts.Codes = NewMemoryCodeStore()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewMemoryStore()
	}
	if opts.Mailer == nil {
		opts.Mailer = LogMailer{Logger: opts.Logger}
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = session.DefaultTTL
	}
	return &Service{
		codes:      opts.Codes,
		sessions:   opts.Sessions,
		mailer:     opts.Mailer,
		codeTTL:    opts.CodeTTL,
		sessionTTL: opts.SessionTTL,
		logger:     opts.Logger,
	}
}

// RequestCode stores a fresh code for email and sends it. A new request
// replaces any earlier code.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := errs.ValidateEmail(email); err != nil {
		return err
	}
	code, err := GenerateCode()
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "could not generate a sign-in code")
	}
	if err := s.codes.Put(ctx, email, code, s.codeTTL); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "could not store the sign-in code")
	}
	if err := s.mailer.Send(ctx, email, code); err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "could not send the sign-in code")
	}
	s.logger.Debug("sign-in code issued", "email", email)
	return nil
}

// Verify exchanges a code for a new session. Codes are single use.
func (s *Service) Verify(ctx context.Context, email, code string) (*session.Session, error) {
	email = NormalizeEmail(email)
	if err := errs.ValidateEmail(email); err != nil {
		return nil, err
	}
	ok, err := s.codes.Consume(ctx, email, strings.TrimSpace(code))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not check the sign-in code")
	}
	if !ok {
		return nil, errs.New(errs.ErrCodeInvalidCode, "invalid or expired code")
	}
	sess, err := session.New(UserIDFor(email), email, s.sessionTTL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not create a session")
	}
	if err := s.sessions.Set(ctx, sess); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not store the session")
	}
	s.logger.Info("signed in", "email", email, "user", sess.UserID)
	return sess, nil
}

// Authenticate resolves a bearer token to a session.
func (s *Service) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, errs.New(errs.ErrCodeUnauthorized, "sign in required")
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInternal, err, "could not load the session")
	}
	if sess == nil {
		return nil, errs.New(errs.ErrCodeSessionExpired, "session expired, please sign in again")
	}
	return sess, nil
}

// Logout ends the session for token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "could not end the session")
	}
	return nil
}
