package server

import (
	"strings"

	"github.com/keydb/keydb/internal/keyspace"
	"github.com/keydb/keydb/internal/metrics"
	"github.com/keydb/keydb/internal/pubsub"
	"github.com/keydb/keydb/internal/resp"
)

// unboundedArgs marks a command with no maximum argument count.
const unboundedArgs = -1

type commandSpec struct {
	minArgs int
	maxArgs int
	handle  func(h *Handlers, c *conn, args []string) [][]byte
}

// Handlers owns every dependency command handlers need and dispatches a
// parsed request to the right one (SPEC_FULL.md §1).
type Handlers struct {
	store     *keyspace.Store
	registry  *pubsub.Registry
	metrics   *metrics.Metrics
	admission *admission
}

// NewHandlers creates a Handlers bound to the given dependencies.
func NewHandlers(store *keyspace.Store, registry *pubsub.Registry, m *metrics.Metrics, adm *admission) *Handlers {
	return &Handlers{store: store, registry: registry, metrics: m, admission: adm}
}

var commandTable = map[string]commandSpec{
	"SET":         {2, 4, handleSet},
	"GET":         {1, 1, handleGet},
	"DEL":         {1, unboundedArgs, handleDel},
	"EXISTS":      {1, unboundedArgs, handleExists},
	"EXPIRE":      {2, 2, handleExpire},
	"TTL":         {1, 1, handleTTL},
	"LPUSH":       {2, unboundedArgs, handleLPush},
	"RPUSH":       {2, unboundedArgs, handleRPush},
	"LPOP":        {1, 1, handleLPop},
	"RPOP":        {1, 1, handleRPop},
	"LLEN":        {1, 1, handleLLen},
	"LRANGE":      {3, 3, handleLRange},
	"HSET":        {3, unboundedArgs, handleHSet},
	"HGET":        {2, 2, handleHGet},
	"HDEL":        {2, unboundedArgs, handleHDel},
	"HGETALL":     {1, 1, handleHGetAll},
	"SADD":        {2, unboundedArgs, handleSAdd},
	"SREM":        {2, unboundedArgs, handleSRem},
	"SMEMBERS":    {1, 1, handleSMembers},
	"SCARD":       {1, 1, handleSCard},
	"PUBLISH":     {2, 2, handlePublish},
	"PING":        {0, 0, handlePing},
	"INFO":        {0, 0, handleInfo},
	"FLUSHALL":    {0, 0, handleFlushAll},
	"SUBSCRIBE":   {1, unboundedArgs, handleSubscribe},
	"UNSUBSCRIBE": {0, unboundedArgs, handleUnsubscribe},
}

// Dispatch routes cmd to its handler, returning one or more encoded
// reply frames to write back in order. Every command with a non-empty
// verb produces at least one reply, and the dispatcher never panics on
// malformed input; an empty command produces no reply.
func (h *Handlers) Dispatch(c *conn, cmd resp.Command) [][]byte {
	if cmd.Verb == "" {
		return nil
	}

	spec, ok := commandTable[cmd.Verb]
	if !ok {
		return [][]byte{resp.Error("ERR unknown command '" + cmd.Verb + "'")}
	}

	if len(cmd.Args) < spec.minArgs || (spec.maxArgs != unboundedArgs && len(cmd.Args) > spec.maxArgs) {
		return [][]byte{arityError(cmd.Verb)}
	}

	if h.metrics != nil {
		h.metrics.CommandsTotal.WithLabelValues(cmd.Verb).Inc()
	}

	return spec.handle(h, c, cmd.Args)
}

func arityError(verb string) []byte {
	return resp.Error("ERR wrong number of arguments for '" + strings.ToLower(verb) + "' command")
}

func wrongTypeOrErr(err error) []byte {
	if err == keyspace.ErrWrongType {
		return resp.Error("WRONGTYPE Operation against a key holding the wrong kind of value")
	}
	return resp.Error("ERR " + err.Error())
}
