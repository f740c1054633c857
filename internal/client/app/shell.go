package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/productdesk/internal/models"
)

// ErrAborted is returned by a LineReader when the user aborts a prompt.
var ErrAborted = errors.New("prompt aborted")

// LineReader reads user input for the shell.
type LineReader interface {
	// Prompt shows prompt and returns one line without its newline.
	Prompt(prompt string) (string, error)
	// PasswordPrompt is like Prompt but does not echo the input.
	PasswordPrompt(prompt string) (string, error)
}

// Shell is the interactive command loop bound to one Controller.
type Shell struct {
	ctl  *Controller
	view *TerminalView
	in   LineReader
	out  io.Writer
	now  func() time.Time
}

// NewShell creates a shell. view must be the view the controller renders to.
func NewShell(ctl *Controller, view *TerminalView, in LineReader, out io.Writer) *Shell {
	return &Shell{ctl: ctl, view: view, in: in, out: out, now: time.Now}
}

// Run reads and executes commands until exit, EOF or an aborted prompt.
// Each command runs under a context cancelled by Ctrl+C.
func (s *Shell) Run(ctx context.Context) error {
	s.ctl.Start()
	for {
		line, err := s.in.Prompt("productdesk> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrAborted) {
				fmt.Fprintln(s.out, "Bye")
				return nil
			}
			return err
		}

		cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		quit := s.Execute(cmdCtx, line)
		stop()
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the shell should quit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false
	}

	s.ctl.ExpireSession(s.now())

	cmd, ok := lookupCommand(args[0])
	main, vis := s.view.State()
	if !ok || !cmd.Tag.Visible(main, vis) {
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
		return false
	}

	switch cmd.Name {
	case "help":
		s.help()
	case "login":
		s.login(ctx)
	case "register":
		s.register(ctx)
	case "logout":
		s.ctl.Logout()
	case "list":
		_ = s.ctl.LoadProducts(ctx)
	case "get":
		if id, ok := s.idArg(args, cmd); ok {
			_, _ = s.ctl.ShowProduct(ctx, id)
		}
	case "search":
		if len(args) < 2 {
			fmt.Fprintf(s.out, "Usage: %s\n", cmd.Usage)
			return false
		}
		_ = s.ctl.SearchByCategory(ctx, strings.Join(args[1:], " "))
	case "whoami":
		if p, err := s.ctl.Profile(ctx); err == nil {
			fmt.Fprintf(s.out, "ID: %d\nName: %s\nEmail: %s\nStatus: %s\n", p.UserID, p.Name, p.Email, p.Status)
		}
	case "add":
		p, ok := s.readProduct(models.Product{})
		if !ok {
			return false
		}
		s.report(s.ctl.AddProduct(ctx, p), "Product added")
	case "edit":
		id, ok := s.idArg(args, cmd)
		if !ok {
			return false
		}
		current, err := s.ctl.ShowProduct(ctx, id)
		if err != nil {
			return false
		}
		p, ok := s.readProduct(*current)
		if !ok {
			return false
		}
		s.report(s.ctl.UpdateProduct(ctx, id, p), "Product updated")
	case "delete":
		if id, ok := s.idArg(args, cmd); ok {
			s.report(s.ctl.DeleteProduct(ctx, id), "Product deleted")
		}
	case "exit":
		fmt.Fprintln(s.out, "Bye")
		return true
	}
	return false
}

func (s *Shell) help() {
	main, vis := s.view.State()
	fmt.Fprintln(s.out, "Available commands:")
	for _, c := range VisibleCommands(main, vis) {
		fmt.Fprintf(s.out, "  %-18s %s\n", c.Usage, c.Help)
	}
}

func (s *Shell) login(ctx context.Context) {
	username, err := s.in.Prompt("Username: ")
	if err != nil {
		return
	}
	password, err := s.in.PasswordPrompt("Password: ")
	if err != nil {
		return
	}
	_ = s.ctl.Login(ctx, strings.TrimSpace(username), password)
}

func (s *Shell) register(ctx context.Context) {
	name, err := s.in.Prompt("Name: ")
	if err != nil {
		return
	}
	email, err := s.in.Prompt("Email: ")
	if err != nil {
		return
	}
	password, err := s.in.PasswordPrompt("Password: ")
	if err != nil {
		return
	}
	_ = s.ctl.Register(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password)
}

func (s *Shell) idArg(args []string, cmd Command) (int, bool) {
	if len(args) < 2 {
		fmt.Fprintf(s.out, "Usage: %s\n", cmd.Usage)
		return 0, false
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(s.out, "Invalid product ID")
		return 0, false
	}
	return id, true
}

// readProduct prompts for every field. An empty answer keeps the value of base.
func (s *Shell) readProduct(base models.Product) (models.Product, bool) {
	p := base

	name, err := s.in.Prompt(fieldPrompt("Name", base.Name, base.ID != 0))
	if err != nil {
		return p, false
	}
	if v := strings.TrimSpace(name); v != "" {
		p.Name = v
	}

	category, err := s.in.Prompt(fieldPrompt("Category", base.Category, base.ID != 0))
	if err != nil {
		return p, false
	}
	if v := strings.TrimSpace(category); v != "" {
		p.Category = v
	}

	price, err := s.in.Prompt(fieldPrompt("Price", strconv.FormatFloat(base.Price, 'f', 2, 64), base.ID != 0))
	if err != nil {
		return p, false
	}
	if v := strings.TrimSpace(price); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fmt.Fprintln(s.out, "Price must be a number")
			return p, false
		}
		p.Price = f
	}

	qty, err := s.in.Prompt(fieldPrompt("Quantity", strconv.Itoa(base.Quantity), base.ID != 0))
	if err != nil {
		return p, false
	}
	if v := strings.TrimSpace(qty); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fmt.Fprintln(s.out, "Quantity must be a whole number")
			return p, false
		}
		p.Quantity = n
	}

	return p, true
}

func fieldPrompt(label, current string, editing bool) string {
	if editing {
		return fmt.Sprintf("%s [%s]: ", label, current)
	}
	return label + ": "
}

func (s *Shell) report(ok bool, success string) {
	if ok {
		fmt.Fprintln(s.out, success)
		return
	}
	fmt.Fprintln(s.out, "Operation failed")
}
