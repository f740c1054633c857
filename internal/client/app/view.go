// Package app drives the client user interface. The Controller reacts to
// login, logout and product operations by updating a View.
package app

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/atinyakov/productdesk/internal/client/session"
	"github.com/atinyakov/productdesk/internal/models"
)

// Visibility tells which role-gated groups of the UI are shown.
type Visibility struct {
	// AdminOnly covers elements tagged admin-only.
	AdminOnly bool
	// UserOnly covers elements tagged user-only.
	UserOnly bool
}

// UpdateUIForRole returns the visibility for role. Admin-only elements are
// shown iff the role is admin, user-only elements iff it is user; any other
// role hides both.
func UpdateUIForRole(role session.Role) Visibility {
	return Visibility{
		AdminOnly: role == session.RoleAdmin,
		UserOnly:  role == session.RoleUser,
	}
}

// View is the rendering surface driven by the Controller.
type View interface {
	// ShowLogin switches to the login view.
	ShowLogin()
	// ShowMain switches to the main view.
	ShowMain()
	// SetUserInfo sets the "Logged in as" line.
	SetUserInfo(text string)
	// SetVisibility shows or hides the role-gated groups.
	SetVisibility(v Visibility)
	// ShowProducts replaces the displayed product list.
	ShowProducts(products []models.Product)
	// ClearProducts empties the displayed product list.
	ClearProducts()
	// Alert reports a failure the user must acknowledge.
	Alert(msg string)
	// Notify reports something without interrupting the user.
	Notify(msg string)
}

// TerminalView renders the UI as text on a terminal. It remembers which
// view is active and what is visible so the shell can offer matching commands.
type TerminalView struct {
	mu       sync.Mutex
	out      io.Writer
	main     bool
	vis      Visibility
	userInfo string
}

// NewTerminalView creates a TerminalView writing to out.
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out}
}

// State returns whether the main view is active and the current visibility.
func (v *TerminalView) State() (main bool, vis Visibility) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.main, v.vis
}

// UserInfo returns the current "Logged in as" line.
func (v *TerminalView) UserInfo() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.userInfo
}

// ShowLogin leaves the main view and prints the login hint.
func (v *TerminalView) ShowLogin() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.main = false
	v.userInfo = ""
	fmt.Fprintln(v.out, "Not logged in. Type 'login' or 'register'.")
}

// ShowMain switches to the main view.
func (v *TerminalView) ShowMain() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.main = true
}

// SetUserInfo records and prints the "Logged in as" line.
func (v *TerminalView) SetUserInfo(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.userInfo = text
	fmt.Fprintln(v.out, text)
}

// SetVisibility records which role-gated commands are offered.
func (v *TerminalView) SetVisibility(vis Visibility) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vis = vis
}

// ShowProducts prints products as a table.
func (v *TerminalView) ShowProducts(products []models.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(products) == 0 {
		fmt.Fprintln(v.out, "No products.")
		return
	}
	tw := tabwriter.NewWriter(v.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tQTY")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Category, p.Price, p.Quantity)
	}
	_ = tw.Flush()
}

// ClearProducts does nothing: printed rows cannot be taken back from a
// scrolling terminal, and the next list is printed in full.
func (v *TerminalView) ClearProducts() {}

// Alert prints msg marked with "!".
func (v *TerminalView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "! %s\n", msg)
}

// Notify prints msg as a plain line.
func (v *TerminalView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, msg)
}
