package auth

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Mailer delivers sign-in codes.
type Mailer interface {
	Send(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail. It is meant
// for local servers where the operator reads the code from the console.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) Send(ctx context.Context, email, code string) error {
	m.Logger.Info("sign-in code", "email", email, "code", code)
	return nil
}

// RecordingMailer keeps the last code sent to each address.
type RecordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *RecordingMailer) Send(ctx context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[email] = code
	return nil
}

// Last returns the last code sent to email.
func (m *RecordingMailer) Last(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}
