package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/teemow/workspace-mcp/internal/session"
)

func newAuthCmd() *cobra.Command {
	opts := sessionOptions{}

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the Google sign-in used by the MCP server",
		Long: `Manage the single Google session the MCP server acts with.

The OAuth client file lives in the configuration directory and the session
in the data directory; "workspace-mcp auth paths" prints both. A stored
session is picked up by "workspace-mcp serve" on its next start, or by the
running server the next time a tool needs it.`,
	}
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json (logs always go to stderr)")

	withManager := func(run func(ctx context.Context, w io.Writer, m *session.Manager, args []string) error) func(*cobra.Command, []string) error {
		return func(c *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger, err := setupLogging(opts)
			if err != nil {
				return err
			}
			m, err := newSessionManager(opts, logger, nil, nil)
			if err != nil {
				return err
			}
			return run(ctx, c.OutOrStdout(), m, args)
		}
	}

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google in the browser",
		Args:  cobra.NoArgs,
		RunE:  withManager(runAuthLogin),
	}
	login.Flags().DurationVar(&opts.callbackTimeout, "callback-timeout", session.DefaultCallbackTimeout, "How long to wait for the browser sign-in to complete")
	login.Flags().BoolVar(&opts.noBrowser, "no-browser", false, "Do not open a browser; print the consent URL instead")

	cmd.AddCommand(
		login,
		&cobra.Command{
			Use:   "code <code-or-redirect-url>",
			Short: "Complete sign-in with an authorization code",
			Long: `Complete sign-in with the authorization code Google displayed, or with the
full URL the browser was redirected to after consent.`,
			Args: cobra.ExactArgs(1),
			RunE: withManager(runAuthCode),
		},
		&cobra.Command{
			Use:   "url",
			Short: "Print the Google consent URL for a manual sign-in",
			Args:  cobra.NoArgs,
			RunE:  withManager(runAuthURL),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current sign-in state",
			Args:  cobra.NoArgs,
			RunE:  withManager(runAuthStatus),
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out and revoke the stored grant",
			Args:  cobra.NoArgs,
			RunE:  withManager(runAuthLogout),
		},
		&cobra.Command{
			Use:   "paths",
			Short: "Print where credentials are read from and stored",
			Args:  cobra.NoArgs,
			RunE:  withManager(runAuthPaths),
		},
	)

	return cmd
}

func runAuthLogin(ctx context.Context, w io.Writer, m *session.Manager, _ []string) error {
	// The spinner stays silent unless stderr is a terminal.
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " Waiting for Google sign-in in the browser..."
	s.Start()
	ok := m.Authenticate(ctx)
	s.Stop()

	if ok {
		printSignedIn(ctx, w, m)
		return nil
	}
	if m.State() == session.StateIdentityMissing {
		return errors.New(m.SetupInstructions())
	}
	if url, ok := m.AuthURL(); ok {
		_, _ = fmt.Fprintf(w, "Browser sign-in did not complete. Open this URL, approve access and run\n"+
			"\"workspace-mcp auth code <code>\" with the code shown:\n\n  %s\n", url)
	}
	return errors.New("authentication failed")
}

func runAuthCode(ctx context.Context, w io.Writer, m *session.Manager, args []string) error {
	code := strings.TrimSpace(args[0])
	if code == "" {
		return errors.New("authorization code is required")
	}
	if !m.SetAuthCode(ctx, code) {
		if m.State() == session.StateIdentityMissing {
			return errors.New(m.SetupInstructions())
		}
		return errors.New("authorization code was rejected; request a new one with \"workspace-mcp auth url\"")
	}
	printSignedIn(ctx, w, m)
	return nil
}

func runAuthURL(_ context.Context, w io.Writer, m *session.Manager, _ []string) error {
	url, ok := m.AuthURL()
	if !ok {
		return errors.New(m.SetupInstructions())
	}
	_, _ = fmt.Fprintln(w, url)
	return nil
}

func runAuthStatus(ctx context.Context, w io.Writer, m *session.Manager, _ []string) error {
	m.Initialize(ctx)
	st := m.Status()

	_, _ = fmt.Fprintf(w, "State:        %s\n", formatState(st.State))
	if st.Ready {
		if user, err := m.Identity(ctx); err == nil {
			_, _ = fmt.Fprintf(w, "User:         %s\n", user.Email)
		}
		if !st.Expiry.IsZero() {
			_, _ = fmt.Fprintf(w, "Expires:      %s\n", st.Expiry.Local().Format(time.RFC3339))
		}
		if st.Scope != "" {
			_, _ = fmt.Fprintf(w, "Scopes:       %s\n", st.Scope)
		}
	}
	_, _ = fmt.Fprintf(w, "Credentials:  %s (%s)\n", st.IdentityPath, st.IdentityStatus)
	_, _ = fmt.Fprintf(w, "Session:      %s (%s)\n", st.SessionPath, st.SessionStatus)
	if st.State == session.StateIdentityMissing {
		_, _ = fmt.Fprintf(w, "\n%s\n", m.SetupInstructions())
	}
	return nil
}

func runAuthLogout(ctx context.Context, w io.Writer, m *session.Manager, _ []string) error {
	m.Logout(ctx)
	_, _ = fmt.Fprintln(w, text.FgGreen.Sprint("Signed out of Google."))
	return nil
}

func runAuthPaths(_ context.Context, w io.Writer, m *session.Manager, _ []string) error {
	_, _ = fmt.Fprintf(w, "Credentials: %s\n", m.IdentityPath())
	_, _ = fmt.Fprintf(w, "Session:     %s\n", m.SessionPath())
	return nil
}

func printSignedIn(ctx context.Context, w io.Writer, m *session.Manager) {
	user, err := m.Identity(ctx)
	if err != nil || user.Email == "" {
		_, _ = fmt.Fprintln(w, "Signed in to Google.")
		return
	}
	_, _ = fmt.Fprintf(w, "Signed in to Google as %s.\n", user.Email)
}

func formatState(st session.State) string {
	switch st {
	case session.StateSessionActive:
		return text.FgGreen.Sprint(st)
	case session.StateIdentityMissing:
		return text.FgRed.Sprint(st)
	default:
		return text.FgYellow.Sprint(st)
	}
}
