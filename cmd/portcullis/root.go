package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/naveenspark/portcullis/internal/auth"
	"github.com/naveenspark/portcullis/internal/config"
	"github.com/naveenspark/portcullis/internal/credential"
	"github.com/naveenspark/portcullis/internal/session"
	"github.com/naveenspark/portcullis/internal/tui"
)

// app holds state shared by every command of one invocation.
type app struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
	level   slog.Level
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "portcullis",
		Short: "Terminal dashboard behind a sign-in gate",
		Long: `portcullis keeps your dashboard behind a session check.

Run without arguments to open the interactive dashboard. When no valid
session exists you are taken to the sign-in screen first.

Example usage:
  portcullis                      # Open the dashboard
  portcullis login -e you@example.com
  portcullis whoami               # Show the signed-in account
  portcullis logout               # End the session`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/portcullis/config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newVersionCmd(),
	)
	return root
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	a.level, err = cfg.Logging.SlogLevel()
	if err != nil {
		return err
	}
	if a.verbose {
		a.level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: a.level,
	}))

	a.logger.Debug("configuration loaded",
		"auth_mode", cfg.Auth.Mode,
		"api_url", cfg.API.URL,
		"token_file", cfg.Auth.TokenFile,
	)
	return nil
}

// newManager wires the credential store and the configured auth service.
func (a *app) newManager(logger *slog.Logger) (*session.Manager, error) {
	svc, err := auth.New(a.cfg.AuthService())
	if err != nil {
		return nil, err
	}
	return session.NewManager(a.store(), svc, session.WithLogger(logger)), nil
}

func (a *app) store() *credential.FileStore {
	return credential.NewFileStore(a.cfg.Auth.TokenFile)
}

// runTUI opens the dashboard. Logs go to a file while the alt screen is up.
func (a *app) runTUI() error {
	logFile, err := openLogFile(a.cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close() //nolint:errcheck

	logger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: a.level}))
	m, err := a.newManager(logger)
	if err != nil {
		return err
	}
	defer m.Close()

	ui := tui.NewApp(m, tui.Options{WebURL: a.cfg.Web.URL, Logger: logger})
	defer ui.Close()

	logger.Info("starting dashboard", "version", version, "auth_mode", a.cfg.Auth.Mode)
	p := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
