package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/auth"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// banner renders name in the figlet font the CLI greets with.
func banner(name string) string {
	return figure.NewFigure(name, "cybermedium", true).String() + "\n"
}

// FormatError turns a command error into the line printed before exiting.
func FormatError(err error) string {
	var locked *auth.LockedError
	var reqErr *api.RequestError
	var validation *errors.ValidationError

	switch {
	case errors.Is(err, errors.ErrAuthExpired):
		return fmt.Sprintf("Session expired (%v). Run `smartcane login` again.", err)
	case errors.Is(err, errors.ErrForbidden):
		return "Access denied: " + err.Error()
	case errors.Is(err, errors.ErrNotAuthenticated):
		return "Not signed in. Run `smartcane login` first."
	case errors.As(err, &locked):
		return fmt.Sprintf("Too many failed attempts. Try again in %d second(s).", locked.RemainingSeconds)
	case errors.As(err, &validation):
		return "Invalid input: " + validation.Error()
	case errors.As(err, &reqErr) && reqErr.Status == 0:
		return fmt.Sprintf("Could not reach the server: %v", err)
	}
	return "Error: " + err.Error()
}

// prompter reads answers line by line from the command's stdin.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// fd is stdin's descriptor when it is a file, -1 otherwise.
	fd           int
	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

func newPrompter(cmd *cobra.Command) *prompter {
	stdin := cmd.InOrStdin()
	fd := -1
	if f, ok := stdin.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &prompter{
		in:           bufio.NewReader(stdin),
		out:          cmd.ErrOrStderr(),
		fd:           fd,
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// ask returns preset when set, otherwise prompts for a line. io.EOF means
// there is nothing more to read.
func (p *prompter) ask(label, preset string) (string, error) {
	if preset != "" {
		return preset, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// askSecret is ask without echo when stdin is a terminal.
func (p *prompter) askSecret(label, preset string) (string, error) {
	if preset != "" || p.fd < 0 || !p.isTerminal(p.fd) {
		return p.ask(label, preset)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	secret, err := p.readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// openBrowser hands url to the platform's default handler.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
