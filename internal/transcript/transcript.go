// Package transcript holds the ordered log of successful exchanges for one
// running process.
//
// The log is display-only: it is never replayed into a backend.
package transcript

import (
	"context"
	"log/slog"

	"github.com/tjfontaine/polyglot-chatbot/internal/domain"
)

// Store persists exchanges in append order. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, ex domain.Exchange) error
	List(ctx context.Context) ([]domain.Exchange, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Transcript is the handle callers hold. It logs storage failures so that
// presentation layers can treat reads as infallible.
type Transcript struct {
	store  Store
	logger *slog.Logger
}

// New wraps store. A nil logger selects slog.Default().
func New(store Store, logger *slog.Logger) *Transcript {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcript{store: store, logger: logger}
}

// Append records ex.
func (t *Transcript) Append(ctx context.Context, ex domain.Exchange) error {
	if err := t.store.Append(ctx, ex); err != nil {
		t.logger.Error("failed to append exchange",
			slog.String("exchange_id", ex.ID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// List returns the exchanges in append order. On a storage failure the
// error is logged and an empty slice returned.
func (t *Transcript) List(ctx context.Context) []domain.Exchange {
	exchanges, err := t.store.List(ctx)
	if err != nil {
		t.logger.Error("failed to list exchanges", slog.String("error", err.Error()))
		return []domain.Exchange{}
	}
	if exchanges == nil {
		exchanges = []domain.Exchange{}
	}
	return exchanges
}

// Len returns the number of recorded exchanges.
func (t *Transcript) Len(ctx context.Context) int {
	n, err := t.store.Len(ctx)
	if err != nil {
		t.logger.Error("failed to count exchanges", slog.String("error", err.Error()))
		return 0
	}
	return n
}

// Clear removes every exchange. Clearing an empty transcript succeeds.
func (t *Transcript) Clear(ctx context.Context) error {
	if err := t.store.Clear(ctx); err != nil {
		t.logger.Error("failed to clear transcript", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Close releases the underlying store.
func (t *Transcript) Close() error {
	return t.store.Close()
}
