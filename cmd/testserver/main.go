// Command testserver runs a local WebSocket server that records the frames
// it receives.
//
// Usage:
//
//	testserver [flags]
//
// Flags:
//
//	-port       Port to listen on (default: 8000)
//	-host       Host to bind to (default: 127.0.0.1)
//	-log-level  debug logs every received frame (default: info)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wsprobe/internal/logging"
	"wsprobe/testserver"
)

func main() {
	port := flag.Int("port", 8000, "port to listen on")
	host := flag.String("host", "127.0.0.1", "host to bind to")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(logging.Config{Level: level})

	server := testserver.NewServer().WithLogger(logger)
	addr := fmt.Sprintf("%s:%d", *host, *port)

	// Print available endpoints
	fmt.Println("wsprobe Test Server")
	fmt.Println("===================")
	fmt.Printf("Listening on ws://%s\n\n", addr)
	fmt.Println("Endpoints:")
	fmt.Println("  WS   /                    - Record received frames")
	fmt.Println("  WS   /ws                  - Record received frames (?echo=true to echo)")
	fmt.Println("  WS   /ws/close            - Server-initiated close (?after=ms)")
	fmt.Println("  WS   /ws/slow             - Delay the handshake (?ms=500)")
	fmt.Println("  GET  /ws/reject           - Fail the handshake with 403")
	fmt.Println("  GET  /health              - Health check")
	fmt.Println("  GET  /stats               - Connection and frame counts")
	fmt.Println()

	srv := &http.Server{Addr: addr, Handler: server.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		fmt.Println("\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
