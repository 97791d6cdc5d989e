package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mctsd/mcts/debug"
	"github.com/mctsd/mcts/reactor"
	"github.com/mctsd/mcts/shell"
	"github.com/mctsd/mcts/telnet"
)

func main() {
	flag.Parse()

	port := fmt.Sprintf("%d", telnet.DefaultPort)
	if args := flag.Args(); len(args) > 0 {
		port = args[0]
	}
	addr := ":" + port

	// Create root context that listens for OS signals.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r, err := reactor.New(addr, func(c *telnet.Connection) telnet.LineHandler {
		return shell.New(c)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Start debug monitor if MCTS_DEBUG=1.
	monitor := debug.NewMonitor(ctx, r)
	monitor.Start()

	if err := r.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
