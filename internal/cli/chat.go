package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"cura/internal/app"
	"cura/internal/domain"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with CURA in the terminal",
	Long: `Chat with CURA in the terminal, sharing state with the web UI.

Lines starting with "/" are commands; anything else is sent to the active chat.
Type /help for the list of commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newREPL(curaApp, os.Stdin, os.Stdout).run(cmd.Context())
	},
}

const helpText = `Commands:
  /register <user> <password>   create an account and log in
  /login <user> <password>      log in
  /logout                       log out
  /new                          start a new chat
  /list                         show active chats
  /archived                     show archived chats
  /select N                     open chat N from the shown list
  /archive N                    archive chat N
  /unarchive N                  reopen archived chat N
  /delete N                     delete chat N
  /delete-all                   delete every chat
  /delete-account               delete your account and chats
  /theme                        toggle light and dark theme
  /quit                         leave`

var errQuit = errors.New("quit")

type repl struct {
	app  *app.App
	in   *bufio.Scanner
	out  io.Writer
	view app.View
}

func newREPL(a *app.App, in io.Reader, out io.Writer) *repl {
	return &repl{app: a, in: bufio.NewScanner(in), out: out}
}

func (r *repl) run(ctx context.Context) error {
	r.view = r.app.View(ctx)
	if r.view.User == "" {
		r.printf("Welcome to CURA. Use /register or /login to begin, /help for commands.\n")
	} else {
		r.printf("Logged in as %s.\n", r.view.User)
		r.printTranscript()
	}

	for {
		r.printf("> ")
		if !r.in.Scan() {
			return r.in.Err()
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		var err error
		if strings.HasPrefix(line, "/") {
			err = r.command(ctx, line)
		} else {
			err = r.send(ctx, line)
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			r.printf("error: %v\n", err)
		}
	}
}

func (r *repl) command(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	var err error
	switch name {
	case "/quit", "/exit":
		return errQuit
	case "/help":
		r.printf("%s\n", helpText)
	case "/register", "/login":
		if len(args) != 2 {
			return fmt.Errorf("usage: %s <user> <password>", name)
		}
		if name == "/register" {
			r.view, err = r.app.Register(ctx, args[0], args[1])
		} else {
			r.view, err = r.app.Login(ctx, args[0], args[1])
		}
		if err != nil {
			return err
		}
		r.printf("Logged in as %s.\n", r.view.User)
		r.printList()
	case "/logout":
		r.view = r.app.Logout(ctx)
		r.printf("Logged out.\n")
	case "/new":
		if r.view, err = r.app.NewSession(ctx); err != nil {
			return err
		}
		r.printTranscript()
	case "/list", "/archived":
		r.view = r.app.ShowArchived(ctx, name == "/archived")
		r.printList()
	case "/select":
		id, err := r.pick(args)
		if err != nil {
			return err
		}
		if r.view, err = r.app.SelectSession(ctx, id); err != nil {
			return err
		}
		r.printTranscript()
	case "/archive", "/unarchive":
		id, err := r.pick(args)
		if err != nil {
			return err
		}
		if r.view, err = r.app.ArchiveSessions(ctx, []string{id}, name == "/archive"); err != nil {
			return err
		}
		r.printList()
	case "/delete":
		id, err := r.pick(args)
		if err != nil {
			return err
		}
		if r.view, err = r.app.DeleteSessions(ctx, []string{id}); err != nil {
			return err
		}
		return r.confirm(ctx)
	case "/delete-all":
		if r.view, err = r.app.DeleteAllChats(ctx); err != nil {
			return err
		}
		return r.confirm(ctx)
	case "/delete-account":
		if r.view, err = r.app.DeleteAccount(ctx); err != nil {
			return err
		}
		return r.confirm(ctx)
	case "/theme":
		r.view = r.app.ToggleTheme(ctx)
		r.printf("Theme: %s\n", r.view.Theme)
	default:
		return fmt.Errorf("unknown command %s, try /help", name)
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	if r.view.ActiveID == "" && r.view.User != "" {
		v, err := r.app.NewSession(ctx)
		if err != nil {
			return err
		}
		r.view = v
	}
	v, err := r.app.SendMessage(ctx, text)
	r.view = v
	if err != nil {
		return err
	}
	if v.Active != nil && len(v.Active.Messages) > 0 {
		r.printf("CURA: %s\n", v.Active.Messages[len(v.Active.Messages)-1].Text)
	}
	return nil
}

// confirm asks about the pending destructive action and runs or drops it.
func (r *repl) confirm(ctx context.Context) error {
	p := r.view.Pending
	if p == nil {
		r.printf("Nothing to delete.\n")
		return nil
	}
	r.printf("%s\n%s [y/N] ", p.Title, p.Message)
	if !r.in.Scan() || !strings.EqualFold(strings.TrimSpace(r.in.Text()), "y") {
		r.view = r.app.Cancel(ctx)
		r.printf("Cancelled.\n")
		return nil
	}
	v, err := r.app.Confirm(ctx)
	r.view = v
	if err != nil {
		return err
	}
	r.printf("Done.\n")
	if v.User != "" {
		r.printList()
	}
	return nil
}

// pick resolves a 1-based position in the shown list to a session id.
func (r *repl) pick(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: expects the chat number from /list")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(r.view.Sessions) {
		return "", fmt.Errorf("no chat %q in the shown list", args[0])
	}
	return r.view.Sessions[n-1].ID, nil
}

func (r *repl) printList() {
	label := "Chats"
	if r.view.ShowArchived {
		label = "Archived chats"
	}
	if len(r.view.Sessions) == 0 {
		r.printf("%s: none\n", label)
		return
	}
	r.printf("%s:\n", label)
	for i, s := range r.view.Sessions {
		marker := " "
		if s.ID == r.view.ActiveID {
			marker = "*"
		}
		r.printf("%s %d. %s (%s)\n", marker, i+1, s.Title, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (r *repl) printTranscript() {
	s := r.view.Active
	if s == nil {
		r.printf("No active chat. Use /new to start one.\n")
		return
	}
	r.printf("== %s ==\n", s.Title)
	for _, m := range s.Messages {
		who := "You"
		if m.Sender == domain.SenderBot {
			who = "CURA"
		}
		r.printf("%s: %s\n", who, m.Text)
	}
	if r.view.IsNewChat {
		r.printf("Try asking:\n")
		for _, p := range r.view.Suggestions {
			r.printf("  - %s\n", p)
		}
	}
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
