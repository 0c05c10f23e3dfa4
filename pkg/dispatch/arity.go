package dispatch

import (
	"fmt"
	"strings"
)

// arityRule describes how many arguments (excluding the command name) a command accepts. min == max means
// exact arity; max == -1 means unbounded.
type arityRule struct {
	min, max int
}

var arityRules = map[string]arityRule{
	"PING": {0, 1}, "QUIT": {0, 0}, "RESET": {0, 0}, "HELLO": {0, -1}, "AUTH": {1, 2},
	"SET": {2, -1}, "GET": {1, 1}, "DEL": {1, -1}, "EXISTS": {1, -1},
	"INCR": {1, 1}, "DECR": {1, 1}, "INCRBY": {2, 2}, "DECRBY": {2, 2},
	"EXPIRE": {2, 2}, "PERSIST": {1, 1}, "TTL": {1, 1},
	"TYPE": {1, 1}, "OBJECT": {2, 2}, "RENAME": {2, 2}, "RENAMENX": {2, 2},
	"APPEND": {2, 2}, "STRLEN": {1, 1}, "DBSIZE": {0, 0}, "FLUSHALL": {0, 1},
	"KEYS": {1, 1}, "SCAN": {1, -1}, "MGET": {1, -1}, "MSET": {2, -1},
	"LPUSH": {2, -1}, "RPUSH": {2, -1}, "LPOP": {1, 2}, "RPOP": {1, 2},
	"LLEN": {1, 1}, "LRANGE": {3, 3}, "LINDEX": {2, 2},
	"HSET": {3, -1}, "HGET": {2, 2}, "HMGET": {2, -1}, "HDEL": {2, -1}, "HEXISTS": {2, 2},
	"HGETALL": {1, 1}, "HLEN": {1, 1}, "HKEYS": {1, 1}, "HVALS": {1, 1}, "HINCRBY": {3, 3},
	"CAS": {3, 3}, "JSONPATCH": {2, 2},
	"SUBSCRIBE": {1, -1}, "UNSUBSCRIBE": {0, -1}, "PSUBSCRIBE": {1, -1}, "PUNSUBSCRIBE": {0, -1},
	"PUBLISH": {2, 2}, "PUBSUB": {1, -1},
	"CLIENT": {1, -1}, "CONFIG": {1, -1}, "INFO": {0, 1}, "COMMAND": {0, -1},
}

func checkArity(name string, args [][]byte) string {
	rule, ok := arityRules[name]
	if !ok {
		return "" // Unknown command; Dispatch reports it as such, not as an arity error.
	}
	if len(args) < rule.min || (rule.max != -1 && len(args) > rule.max) {
		return fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))
	}
	return ""
}
