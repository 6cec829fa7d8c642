package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalContext will cancel the context when any of the given
// signals is received.
func SignalContext(ctx context.Context, delay time.Duration, sigs ...os.Signal) context.Context {
	sch := make(chan os.Signal, 1)
	sub, cancel := context.WithCancel(ctx)
	signal.Notify(sch, sigs...)

	go func() {
		defer signal.Stop(sch)
		select {
		case <-sub.Done():
			return
		case <-sch:
			time.Sleep(delay)
			cancel()
		}
	}()

	return sub
}

// CommandContext returns a context cancelled on SIGINT or SIGTERM, or when
// the returned cancel func is called.
func CommandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return SignalContext(ctx, 0, os.Interrupt, syscall.SIGTERM), cancel
}
