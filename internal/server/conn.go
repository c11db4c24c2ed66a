package server

import (
	"io"
	"net"
	"sync"

	"golang.org/x/time/rate"

	"github.com/keydb/keydb/internal/pubsub"
	"github.com/keydb/keydb/internal/resp"
)

// frame is the CRLF-terminated request/reply boundary this server speaks.
const frame = "\r\n"

// conn wraps one accepted connection: its socket, a serializing write
// lock (writes may come from the read loop's own replies or, once
// subscribed, asynchronously from Publish on another connection's
// goroutine), and pub/sub subscriber identity.
type conn struct {
	netConn  net.Conn
	writeMu  sync.Mutex
	registry *pubsub.Registry

	subscriberID string
	limiter      *rate.Limiter
}

func newConn(nc net.Conn, registry *pubsub.Registry, commandsPerSecond int) *conn {
	c := &conn{netConn: nc, registry: registry}
	if commandsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(commandsPerSecond), commandsPerSecond)
	}
	return c
}

// subscriberIDOrCreate returns this connection's pub/sub identity,
// minting one on first use. Identity is an opaque ULID rather than the
// raw file descriptor, per SPEC_FULL.md §2 (survives descriptor reuse).
func (c *conn) subscriberIDOrCreate() string {
	if c.subscriberID == "" {
		c.subscriberID = c.registry.NewSubscriberID()
	}
	return c.subscriberID
}

// deliver implements pubsub.Deliver: it writes one message-array frame
// to this connection's socket under the write lock, so it can never
// interleave with, or corrupt, another in-flight frame.
func (c *conn) deliver(channel string, payload []byte) error {
	frame := resp.Array([]byte("message"), []byte(channel), payload)
	return c.writeFrame(frame)
}

func (c *conn) writeFrame(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFull(c.netConn, b)
}

// writeFull retries partial writes until b is fully sent or the
// connection errors.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// close releases this connection's pub/sub subscriptions before closing
// its socket, so a lost connection is dropped from every channel it was
// on (SPEC_FULL.md §2).
func (c *conn) close() error {
	if c.subscriberID != "" {
		c.registry.UnsubscribeAll(c.subscriberID)
	}
	return c.netConn.Close()
}

// allow reports whether another command may run now under this
// connection's per-connection rate limit. A nil limiter (rate limiting
// disabled) always allows.
func (c *conn) allow() bool {
	if c.limiter == nil {
		return true
	}
	return c.limiter.Allow()
}
