package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/atinyakov/productdesk/internal/client/api"
	"github.com/atinyakov/productdesk/internal/client/api/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptReader answers prompts from a fixed list of lines.
type scriptReader struct {
	lines     []string
	prompts   []string
	passwords int
}

func (r *scriptReader) next(prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) Prompt(prompt string) (string, error) { return r.next(prompt) }

func (r *scriptReader) PasswordPrompt(prompt string) (string, error) {
	r.passwords++
	return r.next(prompt)
}

func newShell(t *testing.T, lines ...string) (*Shell, *bytes.Buffer, *scriptReader, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	out := &bytes.Buffer{}
	view := NewTerminalView(out)
	ctl := NewController(api.New(srv.URL), view, nil)
	in := &scriptReader{lines: lines}
	return NewShell(ctl, view, in, out), out, in, srv
}

func commandNames(cmds []Command) []string {
	var names []string
	for _, c := range cmds {
		names = append(names, c.Name)
	}
	return names
}

func TestVisibleCommands(t *testing.T) {
	tests := []struct {
		name string
		main bool
		vis  Visibility
		want []string
	}{
		{"logged out", false, Visibility{}, []string{"help", "login", "register", "list", "get", "search", "exit"}},
		{"admin", true, Visibility{AdminOnly: true}, []string{"help", "logout", "list", "get", "search", "add", "edit", "delete", "exit"}},
		{"user", true, Visibility{UserOnly: true}, []string{"help", "logout", "list", "get", "search", "whoami", "exit"}},
		{"unknown role", true, Visibility{}, []string{"help", "logout", "list", "get", "search", "exit"}},
		{"stale visibility while logged out", false, Visibility{AdminOnly: true, UserOnly: true}, []string{"help", "login", "register", "list", "get", "search", "exit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commandNames(VisibleCommands(tt.main, tt.vis)))
		})
	}
}

func TestShell_AdminSession(t *testing.T) {
	sh, out, in, srv := newShell(t,
		"login", "admin@example.com", "admin123",
		"help",
		"add", "Tea", "Drinks", "2.50", "7",
		"edit 4", "", "", "3", "",
		"search Drinks",
		"delete 4",
		"logout",
		"add",
		"exit",
	)

	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Logged in as: Admin User (admin)")
	assert.Contains(t, text, "Product added")
	assert.Contains(t, text, "Product updated")
	assert.Contains(t, text, "Product deleted")
	assert.Contains(t, in.prompts, "Price [2.50]: ", "edit prompts show current values")
	assert.Contains(t, text, "Unknown command", "add is hidden after logout")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(text), "Bye"))
	assert.Equal(t, 1, in.passwords, "password read without echo")

	for _, p := range srv.Products() {
		assert.NotEqual(t, "Tea", p.Name)
	}
}

func TestShell_EditKeepsUnchangedFields(t *testing.T) {
	sh, _, _, srv := newShell(t,
		"login", "admin@example.com", "admin123",
		"edit 2", "", "", "80", "",
	)
	require.NoError(t, sh.Run(context.Background()))

	for _, p := range srv.Products() {
		if p.ID == 2 {
			assert.Equal(t, "Milk", p.Name)
			assert.Equal(t, "Dairy", p.Category)
			assert.Equal(t, 80.0, p.Price)
			assert.Equal(t, 50, p.Quantity)
		}
	}
}

func TestShell_UserSession(t *testing.T) {
	sh, out, _, _ := newShell(t,
		"login", "user@example.com", "user123",
		"whoami",
		"delete 1",
	)
	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Logged in as: Regular User (user)")
	assert.Contains(t, text, "Email: user@example.com")
	assert.Contains(t, text, "Unknown command", "delete is admin-only")
}

func TestShell_LoggedOutHelp(t *testing.T) {
	sh, out, _, _ := newShell(t, "help", "whoami")
	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "login")
	assert.NotContains(t, text, "logout")
	assert.NotContains(t, text, "delete <id>")
	assert.Contains(t, text, "Unknown command")
}

func TestShell_ReadsAnonymously(t *testing.T) {
	sh, out, _, srv := newShell(t, "list", "get 1", "get 99", "search Fruit")
	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Apples")
	assert.Contains(t, text, "Product 99 not found")
	for _, r := range srv.Requests() {
		assert.False(t, r.HasAuth, "%s %s", r.Method, r.Path)
	}
}

func TestShell_LoginFailureAlerts(t *testing.T) {
	sh, out, _, _ := newShell(t, "login", "admin@example.com", "wrong", "add")
	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "! "+MsgLoginFailed)
	assert.Contains(t, text, "Unknown command")
}

func TestShell_ArgumentErrors(t *testing.T) {
	sh, out, _, _ := newShell(t,
		"get",
		"get abc",
		"search",
		"login", "admin@example.com", "admin123",
		"add", "Tea", "Drinks", "cheap",
		"add", "Tea", "Drinks", "1", "many",
	)
	require.NoError(t, sh.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Usage: get <id>")
	assert.Contains(t, text, "Invalid product ID")
	assert.Contains(t, text, "Usage: search <category>")
	assert.Contains(t, text, "Price must be a number")
	assert.Contains(t, text, "Quantity must be a whole number")
	assert.NotContains(t, text, "Product added")
}

func TestShell_EmptyLinesIgnored(t *testing.T) {
	sh, out, _, srv := newShell(t, "", "   ", "exit")
	require.NoError(t, sh.Run(context.Background()))

	assert.Empty(t, srv.Requests())
	assert.NotContains(t, out.String(), "Unknown command")
}
