package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter asks for missing flag values on the command's input.
type prompter struct {
	r  *bufio.Reader
	w  io.Writer
	fd int // -1 when input is not a terminal
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &prompter{r: bufio.NewReader(in), w: cmd.ErrOrStderr(), fd: fd}
}

// line prints label and reads one trimmed line.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.w, label)
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// secret reads without echo on a terminal, or a plain line otherwise.
func (p *prompter) secret(label string) (string, error) {
	if p.fd < 0 {
		return p.line(label)
	}
	fmt.Fprint(p.w, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// require returns value, prompting for it when empty.
func (p *prompter) require(value, label string, hidden bool) (string, error) {
	if value != "" {
		return value, nil
	}
	var (
		s   string
		err error
	)
	if hidden {
		s, err = p.secret(label)
	} else {
		s, err = p.line(label)
	}
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(strings.TrimSuffix(label, ": ")))
	}
	return s, nil
}
