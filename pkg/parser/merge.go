package parser

import (
	"container/heap"
	"context"
	"io"

	"github.com/ccollicutt/chatlog/pkg/resolver"
)

// MergedSource combines multiple MessageSources into a single stream
// ordered by timestamp (oldest first). Messages with equal timestamps keep
// the order of their sources. Each source's own order is never changed,
// so a transcript with out-of-order timestamps is merged as it stands.
type MergedSource struct {
	sources []MessageSource
	heap    *messageHeap
	started bool
}

// NewMergedSource creates a MessageSource that merges multiple sources by timestamp.
func NewMergedSource(sources ...MessageSource) *MergedSource {
	return &MergedSource{
		sources: sources,
		heap:    &messageHeap{},
	}
}

// Next returns the next message in timestamp order across all sources.
// Returns io.EOF when all sources are exhausted.
func (m *MergedSource) Next(ctx context.Context) (*resolver.Message, error) {
	// Initialize heap on first call
	if !m.started {
		m.started = true
		if err := m.initHeap(ctx); err != nil {
			return nil, err
		}
	}

	if m.heap.Len() == 0 {
		return nil, io.EOF
	}

	// Pop the oldest message
	item := heap.Pop(m.heap).(*heapItem)

	// Refill from the same source
	if next, err := m.sources[item.sourceIdx].Next(ctx); err == nil {
		heap.Push(m.heap, &heapItem{
			msg:       next,
			sourceIdx: item.sourceIdx,
		})
	} else if err != io.EOF {
		return nil, err
	}

	return item.msg, nil
}

// initHeap reads the first message from each source to initialize the heap.
func (m *MergedSource) initHeap(ctx context.Context) error {
	heap.Init(m.heap)

	for i, src := range m.sources {
		msg, err := src.Next(ctx)
		if err == io.EOF {
			continue // Empty source
		}
		if err != nil {
			return err
		}

		heap.Push(m.heap, &heapItem{
			msg:       msg,
			sourceIdx: i,
		})
	}

	return nil
}

// Stats sums the counts of all sources.
func (m *MergedSource) Stats() Stats {
	var total Stats
	for _, src := range m.sources {
		total = total.Add(src.Stats())
	}
	return total
}

// Close releases all source resources.
func (m *MergedSource) Close() error {
	var firstErr error
	for _, src := range m.sources {
		if err := src.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// heapItem wraps a Message with its source index for the priority queue.
type heapItem struct {
	msg       *resolver.Message
	sourceIdx int
}

// messageHeap implements heap.Interface for timestamp-ordered merging.
type messageHeap []*heapItem

func (h messageHeap) Len() int { return len(h) }

func (h messageHeap) Less(i, j int) bool {
	if h[i].msg.Timestamp.Equal(h[j].msg.Timestamp) {
		return h[i].sourceIdx < h[j].sourceIdx
	}
	return h[i].msg.Timestamp.Before(h[j].msg.Timestamp)
}

func (h messageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *messageHeap) Push(x interface{}) {
	*h = append(*h, x.(*heapItem))
}

func (h *messageHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Collect drains src into a slice.
func Collect(ctx context.Context, src MessageSource) ([]*resolver.Message, error) {
	var messages []*resolver.Message
	for {
		msg, err := src.Next(ctx)
		if err == io.EOF {
			return messages, nil
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
}
