package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. Shell implements
// it; tests provide a stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Directory(ctx context.Context) error
	Show(ctx context.Context, addr string) error
	Now(ctx context.Context, addr string) error
	Statuses(ctx context.Context, addr string) error
	Feed(ctx context.Context) error
	Pastes(ctx context.Context, addr string) error
	PURLs(ctx context.Context, addr string) error
	Post(ctx context.Context, addr string) error
	Paste(ctx context.Context, addr, name string) error
	RemovePaste(ctx context.Context, addr, name string) error
	Pin(ctx context.Context, addr string) error
	Unpin(ctx context.Context, addr string) error
	Pinned(ctx context.Context) error
	Follow(ctx context.Context, addr string, follow bool) error
	Block(ctx context.Context, addr string, block bool) error
	Filter(ctx context.Context, query string) error
	Sort(ctx context.Context, order string) error
	Drafts(ctx context.Context) error
}

// usage lists commands with the number of arguments they need. A negative
// count means "up to" that many.
var usage = []struct {
	cmd   string
	args  int
	help  string
	needs bool // needs a session
}{
	{"help", 0, "help", false},
	{"login", 0, "login", false},
	{"logout", 0, "logout", true},
	{"directory", 0, "directory", false},
	{"show", 1, "show <addr>", false},
	{"now", 1, "now <addr>", false},
	{"statuses", -1, "statuses [addr]", false},
	{"feed", 0, "feed", true},
	{"pastes", 1, "pastes <addr>", false},
	{"purls", 1, "purls <addr>", false},
	{"post", 1, "post <addr>", true},
	{"paste", 2, "paste <addr> <name>", false},
	{"rmpaste", 2, "rmpaste <addr> <name>", true},
	{"pin", 1, "pin <addr>", false},
	{"unpin", 1, "unpin <addr>", false},
	{"pinned", 0, "pinned", false},
	{"follow", 1, "follow <addr>", true},
	{"unfollow", 1, "unfollow <addr>", true},
	{"block", 1, "block <addr>", false},
	{"unblock", 1, "unblock <addr>", false},
	{"filter", -1, "filter [query]", false},
	{"sort", 1, "sort <alphabetical|newest|oldest|shuffle>", false},
	{"drafts", 0, "drafts", false},
	{"exit", 0, "exit", false},
}

func helpText(loggedIn bool) string {
	var cmds []string
	for _, u := range usage {
		if u.needs && !loggedIn {
			continue
		}
		cmds = append(cmds, u.help)
	}
	return "Available commands: " + strings.Join(cmds, ", ")
}

// runREPL reads commands from reader and dispatches them to a until EOF or
// "exit"/"quit". Command errors are printed and the loop goes on. Commands
// that prompt read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("omg %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if !enoughArgs(cmd, args) {
			continue
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", err)
		}
	}
}

func enoughArgs(cmd string, args []string) bool {
	for _, u := range usage {
		if u.cmd != cmd {
			continue
		}
		if u.args >= 0 && len(args) < u.args {
			printlnFn("Usage:", u.help)
			return false
		}
		return true
	}
	return true
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		printlnFn(helpText(a.isLoggedIn(ctx)))
		return nil
	case "login":
		return a.Login(ctx)
	case "logout":
		return a.Logout(ctx)
	case "directory", "dir":
		return a.Directory(ctx)
	case "show":
		return a.Show(ctx, args[0])
	case "now":
		return a.Now(ctx, args[0])
	case "statuses":
		return a.Statuses(ctx, arg(args, 0))
	case "feed":
		return a.Feed(ctx)
	case "pastes":
		return a.Pastes(ctx, args[0])
	case "purls":
		return a.PURLs(ctx, args[0])
	case "post":
		return a.Post(ctx, args[0])
	case "paste":
		return a.Paste(ctx, args[0], args[1])
	case "rmpaste":
		return a.RemovePaste(ctx, args[0], args[1])
	case "pin":
		return a.Pin(ctx, args[0])
	case "unpin":
		return a.Unpin(ctx, args[0])
	case "pinned":
		return a.Pinned(ctx)
	case "follow", "unfollow":
		return a.Follow(ctx, args[0], cmd == "follow")
	case "block", "unblock":
		return a.Block(ctx, args[0], cmd == "block")
	case "filter":
		return a.Filter(ctx, strings.Join(args, " "))
	case "sort":
		return a.Sort(ctx, args[0])
	case "drafts":
		return a.Drafts(ctx)
	default:
		printlnFn("Unknown command:", cmd)
		return nil
	}
}
