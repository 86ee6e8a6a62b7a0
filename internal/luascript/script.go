// Package luascript provides a common interface for Lua script execution
// against Redis.
package luascript

import (
	"context"

	"github.com/redis/rueidis"
)

// Executor defines the interface for executing an atomic Lua script.
// The coordination protocol depends on this abstraction rather than on
// rueidis.Lua directly so that script behavior can be faked in tests.
type Executor interface {
	// Exec executes the script with the given keys and arguments.
	Exec(ctx context.Context, client rueidis.Client, keys, args []string) rueidis.RedisResult
}

// New creates an Executor wrapping rueidis.NewLuaScript.
func New(script string) Executor {
	return &executor{script: rueidis.NewLuaScript(script)}
}

type executor struct {
	script *rueidis.Lua
}

func (e *executor) Exec(ctx context.Context, client rueidis.Client, keys, args []string) rueidis.RedisResult {
	return e.script.Exec(ctx, client, keys, args)
}
