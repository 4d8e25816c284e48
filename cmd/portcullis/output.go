package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/naveenspark/portcullis/pkg/domain"
)

// printer handles formatted output to the terminal
type printer struct {
	out io.Writer
	err io.Writer
}

func newPrinter(cmd *cobra.Command) printer {
	return printer{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()}
}

// success prints a success message
func (p printer) success(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
}

// info prints an informational message
func (p printer) info(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
}

// warning prints a warning message to stderr
func (p printer) warning(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.err, "! "+format+"\n", args...)
}

// identity prints the signed-in account.
func (p printer) identity(u *domain.User) {
	name := color.New(color.Bold).Sprint(u.Name)
	role := color.New(color.FgHiBlack).Sprintf("[%s]", u.Role)
	if u.IsAdmin() {
		role = color.New(color.FgYellow, color.Bold).Sprintf("[%s]", u.Role)
	}
	verified := color.New(color.FgHiBlack).Sprint("unverified")
	if u.IsEmailVerified {
		verified = color.New(color.FgGreen).Sprint("✓ verified")
	}

	fmt.Fprintf(p.out, "\n  %s  %s\n", name, role)
	fmt.Fprintf(p.out, "  email  %s  %s\n", u.Email, verified)
	fmt.Fprintf(p.out, "  id     %s\n\n", color.New(color.FgHiBlack).Sprint(u.ID))
}

var gateLines = [...]string{
	"The gate is down. It has been down all day. It is very good at being down.",
	"No key, no entry. The portcullis does not negotiate.",
	"Iron bars, twelve feet tall. Your credentials would be a lot lighter.",
	"The guard checked the list twice. You are on neither copy.",
	"Knocking has been tried. It did not work for the last person either.",
	"The drawbridge is up, the moat is full, and the dashboard is on the other side.",
	"Somewhere behind this gate a chart is updating without you.",
	"The gatekeeper only asks two questions. Email. Password.",
	"You are standing in a very well-defended doorway.",
	"The winch turns for anyone who can prove who they are.",
}

// printGateClosed tells the user they need to sign in.
func printGateClosed(w io.Writer) {
	msg := gateLines[rand.IntN(len(gateLines))]

	title := color.New(color.FgHiBlue, color.Bold).Sprint("PORTCULLIS")
	quote := color.New(color.Italic, color.FgHiBlack).Sprint(msg)
	hint := color.New(color.FgHiBlack).Sprint("To enter: portcullis login")

	fmt.Fprintf(w, "\n%s\n\n%s\n\n%s\n\n", title, quote, hint)
}
