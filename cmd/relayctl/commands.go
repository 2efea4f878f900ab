package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/99minutos/ai-messenger/pkg/client"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// promptPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line read otherwise.
func (a *app) promptPassword(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := readPassword(int(f.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	email := a.flags.String("email", "", "optional e-mail address")
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	if a.flags.NArg() != 1 {
		return errors.New("usage: relayctl signup <username> [--email addr]")
	}
	username := a.flags.Arg(0)

	pw, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}
	id, err := a.client().Signup(ctx, username, pw, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s (%s)\n", username, id)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	if a.flags.NArg() != 1 {
		return errors.New("usage: relayctl login <username>")
	}
	username := a.flags.Arg(0)

	pw, err := a.promptPassword("Password: ")
	if err != nil {
		return err
	}
	s, err := a.client().Login(ctx, username, pw)
	if err != nil {
		return err
	}
	if err := a.saveToken(s.Token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s, session valid until %s\n", s.Username, s.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	tok, err := a.sessionToken()
	if err != nil {
		return err
	}
	err = a.client().Logout(ctx, tok)
	a.clearToken()
	if err != nil && !client.IsUnauthorized(err) {
		return err
	}
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdSend(ctx context.Context, a *app, args []string) error {
	to := a.flags.String("to", "", "recipient username (default: yourself)")
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(a.flags.Args(), " "))
	if text == "" {
		return errors.New("usage: relayctl send [--to username] <text...>")
	}
	tok, err := a.sessionToken()
	if err != nil {
		return err
	}
	id, err := a.client().Send(ctx, tok, *to, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "message %d pending\n", id)
	return nil
}

func cmdPoll(ctx context.Context, a *app, args []string) error {
	since := a.flags.Int64("since", 0, "only messages with a greater id")
	limit := a.flags.Int("limit", 0, "maximum number of messages")
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	tok, err := a.sessionToken()
	if err != nil {
		return err
	}
	msgs, err := a.client().Poll(ctx, tok, *since, *limit)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(a.out, "no messages")
		return nil
	}
	for _, m := range msgs {
		printMessage(a.out, m)
	}
	return nil
}

func cmdAck(ctx context.Context, a *app, args []string) error {
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	if a.flags.NArg() != 1 {
		return errors.New("usage: relayctl ack <message-id>")
	}
	id, err := strconv.ParseInt(a.flags.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id %q", a.flags.Arg(0))
	}
	tok, err := a.sessionToken()
	if err != nil {
		return err
	}
	if err := a.client().Ack(ctx, tok, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "message %d consumed\n", id)
	return nil
}

func cmdWatch(ctx context.Context, a *app, args []string) error {
	interval := a.flags.Duration("interval", time.Second, "initial poll interval")
	maxInterval := a.flags.Duration("max-interval", 30*time.Second, "poll interval ceiling when idle")
	if err := a.flags.Parse(args); err != nil {
		return err
	}
	tok, err := a.sessionToken()
	if err != nil {
		return err
	}
	w := &watcher{
		client:      a.client(),
		token:       tok,
		out:         a.out,
		minInterval: *interval,
		maxInterval: *maxInterval,
	}
	err = w.run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printMessage(w io.Writer, m client.Message) {
	switch m.Status {
	case "delivered":
		reply := ""
		if m.ReplyBody != nil {
			reply = *m.ReplyBody
		}
		fmt.Fprintf(w, "#%d %q\n  -> %s\n", m.ID, m.Body, reply)
	case "failed":
		fmt.Fprintf(w, "#%d %q\n  -> (relay failed)\n", m.ID, m.Body)
	default:
		fmt.Fprintf(w, "#%d %q (%s)\n", m.ID, m.Body, m.Status)
	}
}
