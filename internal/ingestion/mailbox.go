// Package ingestion turns unread mailbox messages into tickets and ticket comments.
package ingestion

import (
	"context"
	"time"
)

// RawMessage is one undecoded message pulled from a mailbox.
type RawMessage struct {
	UID        uint32
	Raw        []byte
	ReceivedAt time.Time
}

// Mailbox is the transport the pipeline drains. FetchUnread may open a session
// that stays usable for MarkProcessed until Close is called.
type Mailbox interface {
	FetchUnread(ctx context.Context) ([]RawMessage, error)
	MarkProcessed(ctx context.Context, msg RawMessage) error
	Close() error
}
