package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliEnv struct {
	cfgPath   string
	tokenPath string
	backend   *fakeBackend
}

// setupCLI writes a remote-mode config pointing at a fake backend, in a temp HOME.
func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	backend, srv := newFakeBackend(t)
	env := writeConfig(t, "remote", srv.URL)
	env.backend = backend
	return env
}

func writeConfig(t *testing.T, mode, apiURL string) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	env := cliEnv{
		cfgPath:   filepath.Join(dir, "config.yaml"),
		tokenPath: filepath.Join(dir, ".portcullis", "token"),
	}
	cfg := "api:\n" +
		"  url: " + apiURL + "\n" +
		"  timeout: 5s\n" +
		"auth:\n" +
		"  mode: " + mode + "\n" +
		"  token_file: " + env.tokenPath + "\n" +
		"  mock_secret: cli-test-secret\n" +
		"logging:\n" +
		"  level: error\n" +
		"  file: " + filepath.Join(dir, "portcullis.log") + "\n"
	if err := os.WriteFile(env.cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (e cliEnv) token(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(e.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return ""
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(data))
}

func TestVersionShort(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "version", "--short")
	if err != nil {
		t.Fatalf("version --short failed: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, want %q", out, version)
	}
}

func TestVersionJSON(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "version", "--json")
	if err != nil {
		t.Fatalf("version --json failed: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	for _, key := range []string{"version", "commit", "built", "goVersion", "platform"} {
		if _, ok := info[key]; !ok {
			t.Errorf("version JSON missing %q", key)
		}
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("version should not need a config file: %v", err)
	}
	if !strings.Contains(out.String(), "portcullis version") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestHelpListsCommands(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, sub := range []string{"login", "register", "logout", "whoami", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help missing %q", sub)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "", "nonexistent-command"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestInvalidConfig(t *testing.T) {
	env := setupCLI(t)
	if err := os.WriteFile(env.cfgPath, []byte("auth:\n  mode: ldap\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, _, err := env.run(t, "", "whoami")
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoginWithFlags(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "login", "-e", demoEmail, "-p", demoPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, demoName) || !strings.Contains(out, demoEmail) {
		t.Errorf("unexpected output: %s", out)
	}
	if env.token(t) == "" {
		t.Error("expected credential file after login")
	}
}

func TestLoginPrompts(t *testing.T) {
	env := setupCLI(t)
	stdin := demoEmail + "\n" + demoPassword + "\n"
	out, errOut, err := env.run(t, stdin, "login")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(errOut, "Email: ") || !strings.Contains(errOut, "Password: ") {
		t.Errorf("expected prompts on stderr, got %q", errOut)
	}
	if !strings.Contains(out, "Signed in") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run(t, "", "login", "-e", demoEmail, "-p", "not-the-password")
	if err == nil {
		t.Fatal("expected login to fail")
	}
	if !strings.Contains(err.Error(), "email or password is incorrect") {
		t.Errorf("unexpected error: %v", err)
	}
	if env.token(t) != "" {
		t.Error("failed login must not leave a credential")
	}
}

func TestLoginEmptyPrompt(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run(t, "\n", "login")
	if err == nil || !strings.Contains(err.Error(), "email is required") {
		t.Fatalf("expected email is required, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "register", "-n", "Grace Hopper", "-e", "grace@example.com", "-p", "cobol-forever")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !strings.Contains(out, "Grace Hopper") || !strings.Contains(out, "verify") {
		t.Errorf("unexpected output: %s", out)
	}
	if env.token(t) == "" {
		t.Error("expected credential file after register")
	}
}

func TestRegisterShortPassword(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run(t, "", "register", "-n", "Grace", "-e", "grace@example.com", "-p", "short")
	if err == nil || !strings.Contains(err.Error(), "at least") {
		t.Fatalf("expected password length error, got %v", err)
	}
}

func TestWhoamiNotSignedIn(t *testing.T) {
	env := setupCLI(t)
	_, errOut, err := env.run(t, "", "whoami")
	if !errors.Is(err, errNotSignedIn) {
		t.Fatalf("expected errNotSignedIn, got %v", err)
	}
	if !strings.Contains(errOut, "portcullis login") {
		t.Errorf("expected sign-in hint, got %q", errOut)
	}
}

func TestWhoamiInvalidCredentialClearsIt(t *testing.T) {
	env := setupCLI(t)
	if err := os.MkdirAll(filepath.Dir(env.tokenPath), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env.tokenPath, []byte("not-a-jwt"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, _, err := env.run(t, "", "whoami")
	if err == nil || !strings.Contains(err.Error(), "sign in again") {
		t.Fatalf("expected expired session error, got %v", err)
	}
	if env.token(t) != "" {
		t.Error("invalid credential should be cleared")
	}
}

func TestLogout(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "", "login", "-e", demoEmail, "-p", demoPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out, _, err := env.run(t, "", "logout")
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(out, "Signed out") {
		t.Errorf("unexpected output: %s", out)
	}
	if env.token(t) != "" {
		t.Error("expected credential removed after logout")
	}
	if n := env.backend.activeTokens(); n != 0 {
		t.Errorf("expected server session revoked, %d still active", n)
	}
}

func TestLoginThenWhoami(t *testing.T) {
	env := setupCLI(t)
	if _, _, err := env.run(t, "", "login", "-e", demoEmail, "-p", demoPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	out, _, err := env.run(t, "", "whoami")
	if err != nil {
		t.Fatalf("whoami failed: %v", err)
	}
	for _, want := range []string{demoName, demoEmail, "ADMIN", "verified"} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami output missing %q:\n%s", want, out)
		}
	}

	out, _, err = env.run(t, "", "whoami", "--json")
	if err != nil {
		t.Fatalf("whoami --json failed: %v", err)
	}
	var u struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal([]byte(out), &u); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if u.Email != demoEmail || u.Role != "ADMIN" {
		t.Errorf("unexpected identity: %+v", u)
	}
}

func TestRegisterConflict(t *testing.T) {
	env := setupCLI(t)
	_, _, err := env.run(t, "", "register", "-n", "Someone", "-e", demoEmail, "-p", "long-enough-pw")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if env.token(t) != "" {
		t.Error("failed register must not leave a credential")
	}
}

func TestMockModeRefusesLogin(t *testing.T) {
	env := writeConfig(t, "mock", "https://api.portcullis.dev")
	for _, args := range [][]string{
		{"login", "-e", demoEmail, "-p", demoPassword},
		{"register", "-n", "Grace", "-e", "grace@example.com", "-p", "cobol-forever"},
	} {
		_, _, err := env.run(t, "", args...)
		if !errors.Is(err, errMockCLI) {
			t.Errorf("%s: expected errMockCLI, got %v", args[0], err)
		}
	}
	if env.token(t) != "" {
		t.Error("refused command must not write a credential")
	}
}

func TestLogoutNotSignedIn(t *testing.T) {
	env := setupCLI(t)
	out, _, err := env.run(t, "", "logout")
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if !strings.Contains(out, "Not signed in") {
		t.Errorf("unexpected output: %s", out)
	}
}
