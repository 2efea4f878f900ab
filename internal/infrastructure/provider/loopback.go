package provider

import (
	"context"
	"fmt"
	"strings"
)

// Loopback is a deterministic local provider for development and tests.
// It answers every prompt without leaving the process.
type Loopback struct {
	Prefix string
}

func (l Loopback) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prefix := l.Prefix
	if prefix == "" {
		prefix = "echo"
	}
	return fmt.Sprintf("%s: %s", prefix, strings.TrimSpace(prompt)), nil
}
