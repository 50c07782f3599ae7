package memory

import (
	"context"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/alanyoungcy/newsgap/internal/domain"
)

// DefaultStreamMaxLen caps each stream when no limit is given.
const DefaultStreamMaxLen = 1000

// Bus is an in-process SignalBus. Publish fans out to every live
// subscriber whose channel or glob pattern matches; slow subscribers drop
// messages rather than block the publisher. Streams keep the newest maxLen
// entries with "<seq>-0" ids.
type Bus struct {
	mu      sync.Mutex
	subs    map[*subscription]struct{}
	streams map[string][]domain.StreamMessage
	seq     map[string]uint64
	maxLen  int
}

type subscription struct {
	pattern string
	out     chan []byte
}

var _ domain.SignalBus = (*Bus)(nil)

// NewBus creates a Bus. maxLen <= 0 uses DefaultStreamMaxLen.
func NewBus(maxLen int64) *Bus {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &Bus{
		subs:    make(map[*subscription]struct{}),
		streams: make(map[string][]domain.StreamMessage),
		seq:     make(map[string]uint64),
		maxLen:  int(maxLen),
	}
}

// Publish delivers payload to matching subscribers.
func (b *Bus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !matches(s.pattern, channel) {
			continue
		}
		msg := append([]byte(nil), payload...)
		select {
		case s.out <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. It is
// closed when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	s := &subscription{pattern: channel, out: make(chan []byte, 128)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s.out)
		b.mu.Unlock()
	}()
	return s.out, nil
}

// StreamAppend appends payload to stream, trimming the oldest entries.
func (b *Bus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq[stream]++
	msgs := append(b.streams[stream], domain.StreamMessage{
		ID:      strconv.FormatUint(b.seq[stream], 10) + "-0",
		Payload: append([]byte(nil), payload...),
	})
	if over := len(msgs) - b.maxLen; over > 0 {
		msgs = append([]domain.StreamMessage(nil), msgs[over:]...)
	}
	b.streams[stream] = msgs
	return nil
}

// StreamRead returns up to count entries after lastID; "" or "0" reads from
// the beginning and count <= 0 means no limit.
func (b *Bus) StreamRead(_ context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	after := streamSeq(lastID)
	var out []domain.StreamMessage
	for _, m := range b.streams[stream] {
		if streamSeq(m.ID) <= after {
			continue
		}
		out = append(out, m)
		if count > 0 && len(out) == count {
			break
		}
	}
	return out, nil
}

func streamSeq(id string) uint64 {
	head, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func matches(pattern, channel string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return pattern == channel
	}
	ok, err := path.Match(pattern, channel)
	return err == nil && ok
}
