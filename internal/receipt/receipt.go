// Package receipt delivers transaction receipts to customers. Delivery
// happens strictly after the ledger commit; a failed delivery is reported to
// the caller but never unwinds the committed transaction.
package receipt

import (
	"context"

	"github.com/caribfx/bureau/internal/domain"
	"github.com/rs/zerolog"
)

// Sender delivers a receipt for a committed transaction.
type Sender interface {
	Send(ctx context.Context, txn domain.Transaction) error
}

// LogSender records receipt dispatches in the log. It stands in for the
// email/PDF delivery service in environments that have none configured.
type LogSender struct{}

// NewLogSender returns a LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the receipt dispatch.
func (s *LogSender) Send(ctx context.Context, txn domain.Transaction) error {
	l := zerolog.Ctx(ctx)

	l.Info().
		Str("reference", txn.Reference).
		Str("type", string(txn.Type)).
		Str("customer_email", txn.CustomerEmail).
		Msg("receipt dispatched")

	return nil
}
