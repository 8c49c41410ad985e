package redis

import "strconv"

// CommandSender is anything a command-surface function can forward a
// framed request to: a single Conn, or a Pool (which acquires a connection
// per the load-aware policy), including the Pool that Router.Route
// returns for a key. Router itself does not satisfy it, as its Submit
// takes a routing key. Every
// function below is a thin layer producing a request argument sequence
// and forwarding it to the selected connection's Submit.
type CommandSender interface {
	Submit(args []Arg, cb ReplyFunc) error
}

// Ping executes PING.
func Ping(s CommandSender, cb ReplyFunc) error {
	return s.Submit([]Arg{"PING"}, cb)
}

// Auth executes AUTH.
func Auth(s CommandSender, password string, cb ReplyFunc) error {
	return s.Submit([]Arg{"AUTH", password}, cb)
}

// Select executes SELECT.
func Select(s CommandSender, db int64, cb ReplyFunc) error {
	return s.Submit([]Arg{"SELECT", db}, cb)
}

// Quit executes QUIT.
func Quit(s CommandSender, cb ReplyFunc) error {
	return s.Submit([]Arg{"QUIT"}, cb)
}

// Get executes GET.
func Get(s CommandSender, key string, cb ReplyFunc) error {
	return s.Submit([]Arg{"GET", key}, cb)
}

// SetOptions carries SET's optional modifiers — EX, PX, NX, XX —
// appended only when supplied and in that relative order.
type SetOptions struct {
	EX int64 // seconds; 0 means omit
	PX int64 // milliseconds; 0 means omit
	NX bool
	XX bool
}

// Set executes SET with the optional EX/PX/NX/XX modifiers.
func Set(s CommandSender, key string, value Arg, opts SetOptions, cb ReplyFunc) error {
	args := []Arg{"SET", key, value}
	if opts.EX != 0 {
		args = append(args, "EX", opts.EX)
	}
	if opts.PX != 0 {
		args = append(args, "PX", opts.PX)
	}
	if opts.NX {
		args = append(args, "NX")
	}
	if opts.XX {
		args = append(args, "XX")
	}
	return s.Submit(args, cb)
}

// SetNX executes SETNX.
func SetNX(s CommandSender, key string, value Arg, cb ReplyFunc) error {
	return s.Submit([]Arg{"SETNX", key, value}, cb)
}

// MSet executes MSET. Pairs are appended k1 v1 k2 v2 ... in the given
// map's iteration order, which the server treats as an unordered set of
// assignments.
func MSet(s CommandSender, pairs map[string]Arg, cb ReplyFunc) error {
	args := make([]Arg, 0, 1+2*len(pairs))
	args = append(args, "MSET")
	for k, v := range pairs {
		args = append(args, k, v)
	}
	return s.Submit(args, cb)
}

// MSetNX executes MSETNX, following the same pair-flattening rule as
// MSet.
func MSetNX(s CommandSender, pairs map[string]Arg, cb ReplyFunc) error {
	args := make([]Arg, 0, 1+2*len(pairs))
	args = append(args, "MSETNX")
	for k, v := range pairs {
		args = append(args, k, v)
	}
	return s.Submit(args, cb)
}

// keysArg spreads a scalar-or-sequence key list in order: callers may
// pass a single key or many, and both are framed identically.
func keysArg(verb string, keys []string, extra ...Arg) []Arg {
	args := make([]Arg, 0, 1+len(keys)+len(extra))
	args = append(args, verb)
	for _, k := range keys {
		args = append(args, k)
	}
	args = append(args, extra...)
	return args
}

// Del executes DEL over one or more keys.
func Del(s CommandSender, keys []string, cb ReplyFunc) error {
	return s.Submit(keysArg("DEL", keys), cb)
}

// Exists executes EXISTS over one or more keys.
func Exists(s CommandSender, keys []string, cb ReplyFunc) error {
	return s.Submit(keysArg("EXISTS", keys), cb)
}

// Expire executes EXPIRE.
func Expire(s CommandSender, key string, seconds int64, cb ReplyFunc) error {
	return s.Submit([]Arg{"EXPIRE", key, seconds}, cb)
}

// Incr executes INCR.
func Incr(s CommandSender, key string, cb ReplyFunc) error {
	return s.Submit([]Arg{"INCR", key}, cb)
}

// HSet executes HSET.
func HSet(s CommandSender, key, field string, value Arg, cb ReplyFunc) error {
	return s.Submit([]Arg{"HSET", key, field, value}, cb)
}

// HGet executes HGET.
func HGet(s CommandSender, key, field string, cb ReplyFunc) error {
	return s.Submit([]Arg{"HGET", key, field}, cb)
}

// HMSet executes HMSET, flattening the field/value map in iteration
// order.
func HMSet(s CommandSender, key string, fields map[string]Arg, cb ReplyFunc) error {
	args := make([]Arg, 0, 2+2*len(fields))
	args = append(args, "HMSET", key)
	for f, v := range fields {
		args = append(args, f, v)
	}
	return s.Submit(args, cb)
}

// HGetAll executes HGETALL.
func HGetAll(s CommandSender, key string, cb ReplyFunc) error {
	return s.Submit([]Arg{"HGETALL", key}, cb)
}

// LPush executes LPUSH over one or more values.
func LPush(s CommandSender, key string, values []Arg, cb ReplyFunc) error {
	args := append([]Arg{"LPUSH", key}, values...)
	return s.Submit(args, cb)
}

// RPush executes RPUSH over one or more values.
func RPush(s CommandSender, key string, values []Arg, cb ReplyFunc) error {
	args := append([]Arg{"RPUSH", key}, values...)
	return s.Submit(args, cb)
}

// LRange executes LRANGE.
func LRange(s CommandSender, key string, start, stop int64, cb ReplyFunc) error {
	return s.Submit([]Arg{"LRANGE", key, start, stop}, cb)
}

// SAdd executes SADD over one or more members.
func SAdd(s CommandSender, key string, members []Arg, cb ReplyFunc) error {
	args := append([]Arg{"SADD", key}, members...)
	return s.Submit(args, cb)
}

// SMembers executes SMEMBERS.
func SMembers(s CommandSender, key string, cb ReplyFunc) error {
	return s.Submit([]Arg{"SMEMBERS", key}, cb)
}

// ZMember pairs a score and member for ZAdd, in the "score member"
// order ZADD expects each pair to be framed.
type ZMember struct {
	Score  float64
	Member Arg
}

// ZAdd executes ZADD, appending each pair as "score member" in the given
// order.
func ZAdd(s CommandSender, key string, members []ZMember, cb ReplyFunc) error {
	args := make([]Arg, 0, 2+2*len(members))
	args = append(args, "ZADD", key)
	for _, m := range members {
		args = append(args, m.Score, m.Member)
	}
	return s.Submit(args, cb)
}

// ZRange executes ZRANGE, appending WITHSCORES only when requested.
func ZRange(s CommandSender, key string, start, stop int64, withScores bool, cb ReplyFunc) error {
	args := []Arg{"ZRANGE", key, start, stop}
	if withScores {
		args = append(args, "WITHSCORES")
	}
	return s.Submit(args, cb)
}

// AggregateMode is the AGGREGATE modifier for (Z)(UNION|INTER)STORE.
type AggregateMode string

// Supported AGGREGATE modes.
const (
	AggregateSum AggregateMode = "SUM"
	AggregateMin AggregateMode = "MIN"
	AggregateMax AggregateMode = "MAX"
)

// StoreOptions carries the WEIGHTS/AGGREGATE modifiers shared by
// ZUNIONSTORE and ZINTERSTORE: after the destination key, numkeys and
// the keys themselves are appended, followed by an optional WEIGHTS
// w1...wK and an optional AGGREGATE <mode>.
type StoreOptions struct {
	Weights   []float64
	Aggregate AggregateMode // empty means omit
}

func storeCommand(s CommandSender, verb, dest string, keys []string, opts StoreOptions, cb ReplyFunc) error {
	args := make([]Arg, 0, 3+len(keys)+len(opts.Weights)+3)
	args = append(args, verb, dest, len(keys))
	for _, k := range keys {
		args = append(args, k)
	}
	if len(opts.Weights) > 0 {
		args = append(args, "WEIGHTS")
		for _, w := range opts.Weights {
			args = append(args, w)
		}
	}
	if opts.Aggregate != "" {
		args = append(args, "AGGREGATE", string(opts.Aggregate))
	}
	return s.Submit(args, cb)
}

// ZUnionStore executes ZUNIONSTORE.
func ZUnionStore(s CommandSender, dest string, keys []string, opts StoreOptions, cb ReplyFunc) error {
	return storeCommand(s, "ZUNIONSTORE", dest, keys, opts, cb)
}

// ZInterStore executes ZINTERSTORE.
func ZInterStore(s CommandSender, dest string, keys []string, opts StoreOptions, cb ReplyFunc) error {
	return storeCommand(s, "ZINTERSTORE", dest, keys, opts, cb)
}

// SortOptions carries SORT's optional modifiers — BY, LIMIT offset
// count, GET pattern(s), ALPHA, STORE — each appended only when
// supplied.
type SortOptions struct {
	By     string // empty means omit
	Limit  bool   // whether Offset/Count apply
	Offset int64
	Count  int64
	Get    []string // zero or more GET patterns
	Alpha  bool
	Store  string // empty means omit
}

// Sort executes SORT.
func Sort(s CommandSender, key string, opts SortOptions, cb ReplyFunc) error {
	args := []Arg{"SORT", key}
	if opts.By != "" {
		args = append(args, "BY", opts.By)
	}
	if opts.Limit {
		args = append(args, "LIMIT", opts.Offset, opts.Count)
	}
	for _, pat := range opts.Get {
		args = append(args, "GET", pat)
	}
	if opts.Alpha {
		args = append(args, "ALPHA")
	}
	if opts.Store != "" {
		args = append(args, "STORE", opts.Store)
	}
	return s.Submit(args, cb)
}

// Eval executes EVAL, appending numkeys (the key count), the keys, then
// the remaining args.
func Eval(s CommandSender, script string, keys []string, args []Arg, cb ReplyFunc) error {
	return evalCommand(s, "EVAL", script, keys, args, cb)
}

// EvalSha executes EVALSHA with the same argument shape as Eval.
func EvalSha(s CommandSender, sha string, keys []string, args []Arg, cb ReplyFunc) error {
	return evalCommand(s, "EVALSHA", sha, keys, args, cb)
}

func evalCommand(s CommandSender, verb, scriptOrSha string, keys []string, extra []Arg, cb ReplyFunc) error {
	full := make([]Arg, 0, 3+len(keys)+len(extra))
	full = append(full, verb, scriptOrSha, strconv.Itoa(len(keys)))
	for _, k := range keys {
		full = append(full, k)
	}
	full = append(full, extra...)
	return s.Submit(full, cb)
}

// ClientKill executes the two-word command CLIENT KILL.
func ClientKill(s CommandSender, addr string, cb ReplyFunc) error {
	return s.Submit([]Arg{"CLIENT", "KILL", addr}, cb)
}

// ConfigSet executes the two-word command CONFIG SET.
func ConfigSet(s CommandSender, parameter string, value Arg, cb ReplyFunc) error {
	return s.Submit([]Arg{"CONFIG", "SET", parameter, value}, cb)
}

// ScriptLoad executes the two-word command SCRIPT LOAD.
func ScriptLoad(s CommandSender, script string, cb ReplyFunc) error {
	return s.Submit([]Arg{"SCRIPT", "LOAD", script}, cb)
}

// DebugObject executes the two-word command DEBUG OBJECT.
func DebugObject(s CommandSender, key string, cb ReplyFunc) error {
	return s.Submit([]Arg{"DEBUG", "OBJECT", key}, cb)
}

// Publish executes PUBLISH.
func Publish(s CommandSender, channel string, message Arg, cb ReplyFunc) error {
	return s.Submit([]Arg{"PUBLISH", channel, message}, cb)
}
