package ports

import "context"

// Provider is the external AI language model.
// Errors should be *domain.ProviderError so the relay can decide on retries.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Claimer grants exclusive processing rights over a message.
type Claimer interface {
	// Claim returns false when another worker already owns the message.
	Claim(ctx context.Context, messageID int64) (bool, error)
	Release(ctx context.Context, messageID int64) error
}

// LoginLimiter throttles failed logins per username.
type LoginLimiter interface {
	Allow(ctx context.Context, username string) (bool, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// Enqueuer hands a message over to the relay workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, messageID int64, senderID string) error
}
