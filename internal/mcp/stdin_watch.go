package mcp

import (
	"context"
	"os"
	"time"

	"quire/internal/logging"
)

// WatchParent monitors for parent process death in a background
// goroutine. When the parent PID changes (the agent frontend exited or
// restarted), it calls cancelFn to trigger graceful shutdown. This
// prevents zombie server processes from accumulating.
//
// It must NOT read from stdin — the MCP SDK's StdioTransport owns stdin
// exclusively, and stealing bytes here would corrupt the JSON-RPC
// stream.
//
// The goroutine exits when ctx is cancelled or parent death is detected.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(parentPollInterval):
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process died, initiating shutdown", "was_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}

// parentPollInterval is how often the watchdog re-reads the parent PID.
var parentPollInterval = 2 * time.Second
