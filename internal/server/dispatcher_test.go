package server

import (
	"net"
	"strings"
	"testing"

	"github.com/keydb/keydb/internal/keyspace"
	"github.com/keydb/keydb/internal/metrics"
	"github.com/keydb/keydb/internal/pubsub"
	"github.com/keydb/keydb/internal/resp"
)

func newTestHandlers() (*Handlers, *conn) {
	store := keyspace.New()
	registry := pubsub.NewRegistry()
	m := metrics.New()
	h := NewHandlers(store, registry, m, newAdmission(10))

	server, _ := net.Pipe()
	c := newConn(server, registry, 0)
	return h, c
}

func dispatch(h *Handlers, c *conn, line string) [][]byte {
	return h.Dispatch(c, resp.Parse([]byte(line)))
}

func TestDispatchUnknownCommand(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "NOPE")
	if len(out) != 1 || !strings.Contains(string(out[0]), "unknown command 'NOPE'") {
		t.Fatalf("got %q", out)
	}
}

func TestDispatchArityError(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "GET")
	want := "-ERR wrong number of arguments for 'get' command\r\n"
	if len(out) != 1 || string(out[0]) != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "SET foo bar")
	out := dispatch(h, c, "GET foo")
	if string(out[0]) != "$3\r\nbar\r\n" {
		t.Fatalf("GET foo = %q", out[0])
	}
}

func TestSetWithExpiry(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "SET foo bar EX 100")
	out := dispatch(h, c, "TTL foo")
	if string(out[0]) != ":100\r\n" {
		t.Fatalf("TTL foo = %q", out[0])
	}
}

func TestGetMissingKeyIsNullBulk(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "GET missing")
	if string(out[0]) != "$-1\r\n" {
		t.Fatalf("GET missing = %q", out[0])
	}
}

func TestWrongTypeOverridesPerCommand(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "SET str value")

	tests := []struct {
		cmd  string
		want string
	}{
		{"LPUSH str v", "-WRONGTYPE Operation against a key holding the wrong kind of value\r\n"},
		{"LPOP str", "$-1\r\n"},
		{"LRANGE str 0 -1", "*0\r\n"},
		{"HGETALL str", "*0\r\n"},
		{"HDEL str field", ":0\r\n"},
		{"SREM str member", ":0\r\n"},
		{"SCARD str", ":0\r\n"},
		{"SMEMBERS str", "*0\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			out := dispatch(h, c, tt.cmd)
			if string(out[0]) != tt.want {
				t.Errorf("%s = %q, want %q", tt.cmd, out[0], tt.want)
			}
		})
	}
}

func TestListPushPopOrdering(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "RPUSH mylist a b c")
	out := dispatch(h, c, "LRANGE mylist 0 -1")
	want := "*3\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n"
	if string(out[0]) != want {
		t.Fatalf("LRANGE = %q, want %q", out[0], want)
	}
}

func TestHashRoundTrip(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "HSET user name alice age 30")
	if string(out[0]) != ":2\r\n" {
		t.Fatalf("HSET new fields = %q", out[0])
	}
	out = dispatch(h, c, "HSET user name bob")
	if string(out[0]) != ":0\r\n" {
		t.Fatalf("HSET overwrite = %q, want 0 newly added", out[0])
	}
	out = dispatch(h, c, "HGET user name")
	if string(out[0]) != "$3\r\nbob\r\n" {
		t.Fatalf("HGET user name = %q", out[0])
	}
}

func TestSetOperations(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "SADD tags go redis go")
	out := dispatch(h, c, "SCARD tags")
	if string(out[0]) != ":2\r\n" {
		t.Fatalf("SCARD tags = %q, want 2 (duplicate ignored)", out[0])
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "PUBLISH news hello")
	if string(out[0]) != ":0\r\n" {
		t.Fatalf("PUBLISH with no subscribers = %q", out[0])
	}
}

func TestSubscribeUnsubscribeReplyShape(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "SUBSCRIBE news sports")
	if len(out) != 2 {
		t.Fatalf("SUBSCRIBE news sports produced %d frames, want 2", len(out))
	}
	want0 := "*3\r\n$9\r\nsubscribe\r\n$4\r\nnews\r\n:1\r\n"
	if string(out[0]) != want0 {
		t.Fatalf("frame 0 = %q, want %q", out[0], want0)
	}
	want1 := "*3\r\n$9\r\nsubscribe\r\n$6\r\nsports\r\n:2\r\n"
	if string(out[1]) != want1 {
		t.Fatalf("frame 1 = %q, want %q", out[1], want1)
	}

	out = dispatch(h, c, "UNSUBSCRIBE")
	if len(out) != 2 {
		t.Fatalf("UNSUBSCRIBE produced %d frames, want 2", len(out))
	}
}

func TestFlushAllClearsKeyspace(t *testing.T) {
	h, c := newTestHandlers()
	dispatch(h, c, "SET a 1")
	dispatch(h, c, "SET b 2")
	dispatch(h, c, "FLUSHALL")
	out := dispatch(h, c, "EXISTS a b")
	if string(out[0]) != ":0\r\n" {
		t.Fatalf("EXISTS after FLUSHALL = %q", out[0])
	}
}

func TestPingAndInfo(t *testing.T) {
	h, c := newTestHandlers()
	out := dispatch(h, c, "PING")
	if string(out[0]) != "+PONG\r\n" {
		t.Fatalf("PING = %q", out[0])
	}
	out = dispatch(h, c, "INFO")
	if !strings.Contains(string(out[0]), "redis_version:") {
		t.Fatalf("INFO = %q, want redis_version field", out[0])
	}
}
