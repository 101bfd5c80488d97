package parser

import (
	"context"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// MessageSource provides an iterator over resolved messages.
// Implementations must be safe for sequential access (not concurrent).
type MessageSource interface {
	// Next returns the next message.
	// Returns io.EOF when no more messages are available.
	// Records whose timestamp cannot be resolved are skipped.
	Next(ctx context.Context) (*resolver.Message, error)

	// Stats reports counts accumulated so far.
	Stats() Stats

	// Close releases any resources held by the source.
	Close() error
}
