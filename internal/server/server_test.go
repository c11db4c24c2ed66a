package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/keydb/keydb/internal/keyspace"
	"github.com/keydb/keydb/internal/metrics"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	store := keyspace.New()
	m := metrics.New()
	srv := New(Config{
		Addr:           "127.0.0.1:0",
		MaxConnections: 10,
		ReadChunkBytes: 64,
	}, store, m)

	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	return srv.ln.Addr().String()
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	return line
}

func TestServerEndToEndSetGet(t *testing.T) {
	addr := startTestServer(t)
	conn, r := dial(t, addr)

	sendLine(t, conn, "SET greeting hello")
	if got := readLine(t, r); got != "+OK\r\n" {
		t.Fatalf("SET reply = %q", got)
	}

	sendLine(t, conn, "GET greeting")
	if got := readLine(t, r); got != "$5\r\n" {
		t.Fatalf("GET header = %q", got)
	}
	if got := readLine(t, r); got != "hello\r\n" {
		t.Fatalf("GET payload = %q", got)
	}
}

func TestServerEndToEndUnknownCommand(t *testing.T) {
	addr := startTestServer(t)
	conn, r := dial(t, addr)

	sendLine(t, conn, "NOPE")
	got := readLine(t, r)
	if got != "-ERR unknown command 'NOPE'\r\n" {
		t.Fatalf("reply = %q", got)
	}
}

func TestServerEndToEndPubSub(t *testing.T) {
	addr := startTestServer(t)
	subConn, subR := dial(t, addr)
	pubConn, pubR := dial(t, addr)

	sendLine(t, subConn, "SUBSCRIBE news")
	// *3\r\n $9\r\n subscribe\r\n $4\r\n news\r\n :1\r\n -- six CRLF-terminated segments
	for i := 0; i < 6; i++ {
		readLine(t, subR)
	}

	sendLine(t, pubConn, "PUBLISH news hello")
	if got := readLine(t, pubR); got != ":1\r\n" {
		t.Fatalf("PUBLISH reply = %q, want 1 receiver", got)
	}

	// The subscriber should receive the delivered message array.
	if got := readLine(t, subR); got != "*3\r\n" {
		t.Fatalf("delivery header = %q", got)
	}
}

func TestServerRejectsBeyondMaxConnections(t *testing.T) {
	store := keyspace.New()
	m := metrics.New()
	srv := New(Config{Addr: "127.0.0.1:0", MaxConnections: 1, ReadChunkBytes: 64}, store, m)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()
	addr := srv.ln.Addr().String()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial first: %v", err)
	}
	defer first.Close()

	// Give the accept loop a moment to reserve the first slot.
	time.Sleep(20 * time.Millisecond)

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial second: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	if _, err := second.Read(buf); err == nil {
		t.Fatalf("expected the second connection to be closed at capacity")
	}
}
