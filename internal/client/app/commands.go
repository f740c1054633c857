package app

// Tag says when a shell command is offered.
type Tag int

const (
	// TagAlways commands are offered in every state.
	TagAlways Tag = iota
	// TagLoggedOut commands belong to the login view.
	TagLoggedOut
	// TagLoggedIn commands belong to the main view.
	TagLoggedIn
	// TagAdminOnly commands are shown in the main view to admins.
	TagAdminOnly
	// TagUserOnly commands are shown in the main view to users.
	TagUserOnly
)

// Command describes one shell command.
type Command struct {
	Name  string
	Usage string
	Help  string
	Tag   Tag
}

// Commands is the full command table in help order.
var Commands = []Command{
	{Name: "help", Usage: "help", Help: "list available commands", Tag: TagAlways},
	{Name: "login", Usage: "login", Help: "log in with username and password", Tag: TagLoggedOut},
	{Name: "register", Usage: "register", Help: "create an account and log in", Tag: TagLoggedOut},
	{Name: "logout", Usage: "logout", Help: "log out", Tag: TagLoggedIn},
	{Name: "list", Usage: "list", Help: "list all products", Tag: TagAlways},
	{Name: "get", Usage: "get <id>", Help: "show one product", Tag: TagAlways},
	{Name: "search", Usage: "search <category>", Help: "list products of a category", Tag: TagAlways},
	{Name: "whoami", Usage: "whoami", Help: "show your profile", Tag: TagUserOnly},
	{Name: "add", Usage: "add", Help: "add a product", Tag: TagAdminOnly},
	{Name: "edit", Usage: "edit <id>", Help: "replace a product", Tag: TagAdminOnly},
	{Name: "delete", Usage: "delete <id>", Help: "delete a product", Tag: TagAdminOnly},
	{Name: "exit", Usage: "exit", Help: "quit", Tag: TagAlways},
}

// Visible reports whether a command with tag t is offered in the given state.
func (t Tag) Visible(main bool, vis Visibility) bool {
	switch t {
	case TagAlways:
		return true
	case TagLoggedOut:
		return !main
	case TagLoggedIn:
		return main
	case TagAdminOnly:
		return main && vis.AdminOnly
	case TagUserOnly:
		return main && vis.UserOnly
	default:
		return false
	}
}

// VisibleCommands returns the commands offered in the given state.
func VisibleCommands(main bool, vis Visibility) []Command {
	var out []Command
	for _, c := range Commands {
		if c.Tag.Visible(main, vis) {
			out = append(out, c)
		}
	}
	return out
}

func lookupCommand(name string) (Command, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}
