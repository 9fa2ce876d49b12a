// Command wsprobe opens WebSocket connections, sends a scripted sequence of
// text frames and force-closes each connection after an overall timeout.
//
// Usage:
//
//	wsprobe [flags]
//
// Examples:
//
//	wsprobe --scenario burst
//	wsprobe --endpoint ws://localhost:9000/ws --step "hi@0" --step "bye@1s" --timeout 3s
//	wsprobe --config probe.yaml --connections 10 --output json
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

const (
	ExitSuccess = 0
	ExitError   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
