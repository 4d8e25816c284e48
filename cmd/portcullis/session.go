package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/naveenspark/portcullis/internal/auth"
	"github.com/naveenspark/portcullis/internal/session"
	"github.com/naveenspark/portcullis/pkg/domain"
)

var (
	errNotSignedIn = errors.New("not signed in")

	errMockCLI = errors.New("mock auth mode keeps sessions in memory; sign in from the dashboard (run portcullis without arguments)")
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in and store the session credential.

Values not given as flags are prompted for. The password is read without echo
when the input is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDurableSessions(); err != nil {
				return err
			}
			p := newPrompter(cmd)
			var err error
			if email, err = p.require(strings.TrimSpace(email), "Email: ", false); err != nil {
				return err
			}
			if password, err = p.require(password, "Password: ", true); err != nil {
				return err
			}

			m, err := a.newManager(a.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			u, err := m.Login(cmd.Context(), domain.LoginRequest{Email: email, Password: password})
			if err != nil {
				a.logger.Debug("login failed", "error", err)
				return fmt.Errorf("login failed: %s", auth.UserMessage(err))
			}
			newPrinter(cmd).success("Signed in as %s <%s>", u.Name, u.Email)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireDurableSessions(); err != nil {
				return err
			}
			p := newPrompter(cmd)
			var err error
			if name, err = p.require(strings.TrimSpace(name), "Name: ", false); err != nil {
				return err
			}
			if email, err = p.require(strings.TrimSpace(email), "Email: ", false); err != nil {
				return err
			}
			if password, err = p.require(password, "Password: ", true); err != nil {
				return err
			}

			m, err := a.newManager(a.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			u, err := m.Register(cmd.Context(), domain.SignupRequest{Name: name, Email: email, Password: password})
			if err != nil {
				a.logger.Debug("register failed", "error", err)
				return fmt.Errorf("registration failed: %s", auth.UserMessage(err))
			}
			out := newPrinter(cmd)
			out.success("Welcome, %s. Signed in as <%s>", u.Name, u.Email)
			if !u.IsEmailVerified {
				out.info("Check your inbox to verify your email address.")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd)
			if _, ok := a.store().Get(); !ok {
				out.info("Not signed in.")
				return nil
			}

			m, err := a.newManager(a.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			out.success("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newManager(a.logger)
			if err != nil {
				return err
			}
			defer m.Close()

			st, err := m.Init(cmd.Context())
			if st.Status == session.StatusAuthenticated {
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(st.Identity)
				}
				newPrinter(cmd).identity(st.Identity)
				return nil
			}
			if err != nil {
				a.logger.Debug("session resolution failed", "error", err)
				return fmt.Errorf("whoami: %s", auth.UserMessage(err))
			}
			printGateClosed(cmd.ErrOrStderr())
			return errNotSignedIn
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// requireDurableSessions rejects commands whose session would not outlive
// the process. Mock sessions exist only inside the running dashboard.
func (a *app) requireDurableSessions() error {
	if auth.Mode(a.cfg.Auth.Mode) == auth.ModeMock {
		return errMockCLI
	}
	return nil
}
