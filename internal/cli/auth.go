package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memeforge/pkg/api"
	"github.com/matzehuels/memeforge/pkg/session"
)

// loginTimeout bounds the whole sign-in exchange, including the time spent
// waiting for the user to type the code.
const loginTimeout = 10 * time.Minute

// loginCommand creates the login command.
func (c *CLI) loginCommand() *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the configured server",
		Long: `Sign in with an emailed one-time code.

The server sends a six-digit code to the address. Enter it when prompted,
or pass it with --code. Your session is stored in ~/.config/memeforge/sessions/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if sess, _ := c.storedSession(ctx); sess != nil && sess.Server == c.client(ctx).BaseURL() {
				printInfo("Already logged in as %s", sess.Email)
				printDetail("Run '%s logout' first to sign in again", appName)
				return nil
			}
			_, err := c.runLogin(ctx, os.Stdin, email, code)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (prompted when empty)")
	cmd.Flags().StringVar(&code, "code", "", "one-time code already received (skips sending a new one)")

	return cmd
}

// logoutCommand creates the logout command.
func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLogout(cmd.Context())
		},
	}
}

// whoamiCommand creates the whoami command.
func (c *CLI) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := c.storedSession(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				return fmt.Errorf("not logged in (run '%s login' first)", appName)
			}
			client, err := c.authedClient(ctx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			spinner := newSpinnerWithContext(ctx, "Verifying session...")
			spinner.Start()
			id, err := client.Me(ctx)
			if err != nil {
				spinner.StopWithError("Session invalid")
				return fmt.Errorf("verify session: %w", err)
			}
			spinner.Stop()

			printSuccess("Memeforge Session")
			printKeyValue("Email", id.Email)
			printKeyValue("Server", sess.Server)
			printKeyValue("Logged in", sess.CreatedAt.Format("Jan 2, 2006"))
			printKeyValue("Expires", sess.ExpiresAt.Format("Jan 2, 2006"))
			return nil
		},
	}
}

// runLogin requests a code for email unless one was given, reads the code
// from in and stores the resulting session.
func (c *CLI) runLogin(ctx context.Context, in io.Reader, email, code string) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	client := c.client(ctx).WithToken("")
	r := bufio.NewReader(in)

	var err error
	if email == "" {
		if email, err = prompt(r, "Email: "); err != nil {
			return nil, err
		}
	}
	if code == "" {
		if err := client.RequestCode(ctx, email); err != nil {
			return nil, fmt.Errorf("request code: %w", err)
		}
		printInfo("Sent a sign-in code to %s", email)
		if code, err = prompt(r, "Code: "); err != nil {
			return nil, err
		}
	}

	res, err := client.Verify(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	sess, err := c.saveLogin(ctx, client.BaseURL(), res)
	if err != nil {
		return nil, err
	}

	printSuccess("Logged in as %s", res.Email)
	return sess, nil
}

func (c *CLI) saveLogin(ctx context.Context, server string, res *api.VerifyResponse) (*session.Session, error) {
	store, err := c.sessionStore()
	if err != nil {
		return nil, err
	}
	sess := &session.Session{
		UserID:      res.UserID,
		Email:       res.Email,
		CreatedAt:   time.Now(),
		ExpiresAt:   res.ExpiresAt,
		AccessToken: res.Token,
		Server:      server,
	}
	if err := store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return sess, nil
}

// runLogout revokes the server session when possible and always removes
// the local one.
func (c *CLI) runLogout(ctx context.Context) error {
	store, err := c.sessionStore()
	if err != nil {
		return err
	}
	sess, err := store.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		printInfo("Not logged in")
		return nil
	}
	if sess.Server != "" {
		client := api.NewClient(sess.Server, sess.AccessToken)
		if err := client.Logout(ctx); err != nil {
			c.Logger.Debug("server logout failed", "error", err)
		}
	}
	if err := store.DeleteSession(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	printSuccess("Logged out")
	return nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	printInline("%s", label)
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", fmt.Errorf("no input")
	}
	return line, nil
}
