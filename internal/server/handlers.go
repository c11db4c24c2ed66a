package server

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/keydb/keydb/internal/resp"
)

const serverVersion = "keydb-1.0.0"

func singleReply(b []byte) [][]byte {
	return [][]byte{b}
}

func toByteSlices(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

// SET key value [EX seconds]
func handleSet(h *Handlers, c *conn, args []string) [][]byte {
	key := args[0]
	value := []byte(args[1])

	var ttl time.Duration
	switch len(args) {
	case 2:
		// no expiry
	case 4:
		if strings.ToUpper(args[2]) != "EX" {
			return singleReply(resp.Error("ERR syntax error"))
		}
		seconds, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil || seconds <= 0 {
			return singleReply(resp.Error("ERR invalid expire time"))
		}
		ttl = time.Duration(seconds) * time.Second
	default:
		return singleReply(resp.Error("ERR syntax error"))
	}

	h.store.Set(key, value, ttl)
	return singleReply(resp.SimpleString("OK"))
}

// GET key
func handleGet(h *Handlers, c *conn, args []string) [][]byte {
	v, found, err := h.store.Get(args[0])
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	if !found {
		return singleReply(resp.NullBulk())
	}
	return singleReply(resp.Bulk(v))
}

// DEL key [key ...]
func handleDel(h *Handlers, c *conn, args []string) [][]byte {
	return singleReply(resp.Integer(int64(h.store.Del(args...))))
}

// EXISTS key [key ...]
func handleExists(h *Handlers, c *conn, args []string) [][]byte {
	return singleReply(resp.Integer(int64(h.store.Exists(args...))))
}

// EXPIRE key seconds
func handleExpire(h *Handlers, c *conn, args []string) [][]byte {
	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return singleReply(resp.Error("ERR invalid expire time"))
	}
	return singleReply(resp.Integer(int64(h.store.Expire(args[0], seconds))))
}

// TTL key
func handleTTL(h *Handlers, c *conn, args []string) [][]byte {
	return singleReply(resp.Integer(h.store.TTL(args[0])))
}

// LPUSH key v [v ...]
func handleLPush(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.LPush(args[0], toByteSlices(args[1:]))
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	return singleReply(resp.Integer(int64(n)))
}

// RPUSH key v [v ...]
func handleRPush(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.RPush(args[0], toByteSlices(args[1:]))
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	return singleReply(resp.Integer(int64(n)))
}

// LPOP key — non-list and empty-list both fall through to null bulk,
// per spec.md §4.3 (LPOP/RPOP are deliberately excluded from the
// general wrong-type sentinel list).
func handleLPop(h *Handlers, c *conn, args []string) [][]byte {
	v, found, err := h.store.LPop(args[0])
	if err != nil || !found {
		return singleReply(resp.NullBulk())
	}
	return singleReply(resp.Bulk(v))
}

// RPOP key
func handleRPop(h *Handlers, c *conn, args []string) [][]byte {
	v, found, err := h.store.RPop(args[0])
	if err != nil || !found {
		return singleReply(resp.NullBulk())
	}
	return singleReply(resp.Bulk(v))
}

// LLEN key
func handleLLen(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.LLen(args[0])
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	return singleReply(resp.Integer(int64(n)))
}

// LRANGE key start stop — non-list falls through to an empty array,
// per spec.md §4.3 (mirrors the LPOP/RPOP carve-out).
func handleLRange(h *Handlers, c *conn, args []string) [][]byte {
	start, errStart := strconv.Atoi(args[1])
	stop, errStop := strconv.Atoi(args[2])
	if errStart != nil || errStop != nil {
		return singleReply(resp.Error("ERR invalid range"))
	}
	elems, err := h.store.LRange(args[0], start, stop)
	if err != nil {
		return singleReply(resp.EmptyArray())
	}
	return singleReply(resp.Array(elems...))
}

// HSET key field value [field value ...]
func handleHSet(h *Handlers, c *conn, args []string) [][]byte {
	fieldsAndValues := args[1:]
	if len(fieldsAndValues)%2 != 0 {
		return singleReply(arityError("HSET"))
	}
	pairs := make([][2][]byte, len(fieldsAndValues)/2)
	for i := range pairs {
		pairs[i] = [2][]byte{[]byte(fieldsAndValues[2*i]), []byte(fieldsAndValues[2*i+1])}
	}
	n, err := h.store.HSet(args[0], pairs)
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	return singleReply(resp.Integer(int64(n)))
}

// HGET key field
func handleHGet(h *Handlers, c *conn, args []string) [][]byte {
	v, found, err := h.store.HGet(args[0], args[1])
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	if !found {
		return singleReply(resp.NullBulk())
	}
	return singleReply(resp.Bulk(v))
}

// HDEL key field [field ...] — non-hash falls through to :0, per
// spec.md §4.3.
func handleHDel(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.HDel(args[0], args[1:])
	if err != nil {
		return singleReply(resp.Integer(0))
	}
	return singleReply(resp.Integer(int64(n)))
}

// HGETALL key — non-hash falls through to an empty array.
func handleHGetAll(h *Handlers, c *conn, args []string) [][]byte {
	elems, err := h.store.HGetAll(args[0])
	if err != nil {
		return singleReply(resp.EmptyArray())
	}
	return singleReply(resp.Array(elems...))
}

// SADD key m [m ...]
func handleSAdd(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.SAdd(args[0], toByteSlices(args[1:]))
	if err != nil {
		return singleReply(wrongTypeOrErr(err))
	}
	return singleReply(resp.Integer(int64(n)))
}

// SREM key m [m ...] — non-set falls through to :0.
func handleSRem(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.SRem(args[0], args[1:])
	if err != nil {
		return singleReply(resp.Integer(0))
	}
	return singleReply(resp.Integer(int64(n)))
}

// SMEMBERS key — non-set falls through to an empty array.
func handleSMembers(h *Handlers, c *conn, args []string) [][]byte {
	elems, err := h.store.SMembers(args[0])
	if err != nil {
		return singleReply(resp.EmptyArray())
	}
	return singleReply(resp.Array(elems...))
}

// SCARD key — non-set falls through to :0.
func handleSCard(h *Handlers, c *conn, args []string) [][]byte {
	n, err := h.store.SCard(args[0])
	if err != nil {
		return singleReply(resp.Integer(0))
	}
	return singleReply(resp.Integer(int64(n)))
}

// PUBLISH channel message
func handlePublish(h *Handlers, c *conn, args []string) [][]byte {
	n := h.registry.Publish(args[0], []byte(args[1]))
	return singleReply(resp.Integer(int64(n)))
}

// PING
func handlePing(h *Handlers, c *conn, args []string) [][]byte {
	return singleReply(resp.SimpleString("PONG"))
}

// INFO
func handleInfo(h *Handlers, c *conn, args []string) [][]byte {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	connected := 0
	if h.admission != nil {
		connected = h.admission.count()
	}

	var b strings.Builder
	b.WriteString("# Server\r\n")
	b.WriteString("redis_version:" + serverVersion + "\r\n")
	b.WriteString("# Clients\r\n")
	b.WriteString("connected_clients:" + strconv.Itoa(connected) + "\r\n")
	b.WriteString("# Memory\r\n")
	b.WriteString("used_memory:" + strconv.FormatUint(mem.Alloc, 10) + "\r\n")
	b.WriteString("# Keyspace\r\n")
	b.WriteString("db0:keys=" + strconv.Itoa(h.store.KeyCount()) + "\r\n")

	return singleReply(resp.Bulk([]byte(b.String())))
}

// FLUSHALL
func handleFlushAll(h *Handlers, c *conn, args []string) [][]byte {
	h.store.FlushAll()
	return singleReply(resp.SimpleString("OK"))
}

// SUBSCRIBE channel [channel ...]
func handleSubscribe(h *Handlers, c *conn, args []string) [][]byte {
	id := c.subscriberIDOrCreate()
	frames := make([][]byte, 0, len(args))
	for _, ch := range args {
		n := h.registry.Subscribe(id, ch, c.deliver)
		frames = append(frames, resp.RawArray(resp.BulkString("subscribe"), resp.BulkString(ch), resp.Integer(int64(n))))
	}
	return frames
}

// UNSUBSCRIBE [channel ...] — with no channels, unsubscribes from every
// channel this connection is on.
func handleUnsubscribe(h *Handlers, c *conn, args []string) [][]byte {
	id := c.subscriberIDOrCreate()

	if len(args) == 0 {
		channels := h.registry.UnsubscribeAll(id)
		if len(channels) == 0 {
			return singleReply(resp.RawArray(resp.BulkString("unsubscribe"), resp.NullBulk(), resp.Integer(0)))
		}
		remaining := len(channels)
		frames := make([][]byte, 0, len(channels))
		for _, ch := range channels {
			remaining--
			frames = append(frames, resp.RawArray(resp.BulkString("unsubscribe"), resp.BulkString(ch), resp.Integer(int64(remaining))))
		}
		return frames
	}

	frames := make([][]byte, 0, len(args))
	for _, ch := range args {
		n := h.registry.Unsubscribe(id, ch)
		frames = append(frames, resp.RawArray(resp.BulkString("unsubscribe"), resp.BulkString(ch), resp.Integer(int64(n))))
	}
	return frames
}
