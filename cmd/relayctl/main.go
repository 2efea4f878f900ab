// relayctl is a command-line client for the AI messenger relay.
//
//	relayctl signup <username> [--email addr]
//	relayctl login <username>
//	relayctl send [--to username] <text...>
//	relayctl poll [--since id]
//	relayctl ack <message-id>
//	relayctl watch
//	relayctl logout
//
// The session token from login is kept in --token-file and can be
// overridden with --token or RELAY_TOKEN.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/99minutos/ai-messenger/pkg/client"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globals are the flags shared by every subcommand.
type globals struct {
	server    string
	token     string
	tokenFile string
}

func (g *globals) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&g.server, "server", envOr("RELAY_SERVER", "http://localhost:8080"), "relay server base URL")
	fs.StringVar(&g.token, "token", os.Getenv("RELAY_TOKEN"), "session token (overrides --token-file)")
	fs.StringVar(&g.tokenFile, "token-file", defaultTokenFile(), "where login stores the session token")
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, app *app, args []string) error
}

var commands = []command{
	{"signup", "signup <username> [--email addr]", cmdSignup},
	{"login", "login <username>", cmdLogin},
	{"logout", "logout", cmdLogout},
	{"send", "send [--to username] <text...>", cmdSend},
	{"poll", "poll [--since id] [--limit n]", cmdPoll},
	{"ack", "ack <message-id>", cmdAck},
	{"watch", "watch [--interval d] [--max-interval d]", cmdWatch},
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout)
		if len(args) == 0 {
			return errors.New("missing command")
		}
		return nil
	}

	for _, cmd := range commands {
		if cmd.name != args[0] {
			continue
		}
		var g globals
		fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
		fs.SetOutput(stdout)
		g.addFlags(fs)
		a := &app{globals: &g, flags: fs, stdin: stdin, out: stdout}
		return cmd.run(ctx, a, args[1:])
	}

	printUsage(stdout)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: relayctl <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %s\n", c.usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "global flags: --server, --token, --token-file")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultTokenFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "relayctl", "token")
	}
	return ".relayctl-token"
}

// app carries the parsed global state into a subcommand.
type app struct {
	*globals
	flags *pflag.FlagSet
	stdin io.Reader
	out   io.Writer
}

func (a *app) client() *client.Client {
	return client.New(a.server, nil)
}

func (a *app) sessionToken() (string, error) {
	if a.token != "" {
		return a.token, nil
	}
	raw, err := os.ReadFile(a.tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.New("not logged in: run relayctl login")
		}
		return "", fmt.Errorf("read token: %w", err)
	}
	return string(raw), nil
}

func (a *app) saveToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenFile), 0o700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := os.WriteFile(a.tokenFile, []byte(token), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (a *app) clearToken() {
	_ = os.Remove(a.tokenFile)
}
