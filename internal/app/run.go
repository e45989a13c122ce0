package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"hashd/internal/tcpserver"
)

// Run builds an App from args (the CLI's argv[1:]) plus the environment,
// then runs it until SIGINT/SIGTERM or a fatal error. args may contain at
// most one element: an optional port overriding HASHD_PORT, matching the
// original `server [port]` invocation.
func Run(args []string) error {
	cfg := LoadConfig()

	if len(args) > 0 {
		port, err := tcpserver.ParsePort(args[0])
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		cfg.Port = port
	}

	a, err := New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger().Message(fmt.Sprintf("starting on port %d", cfg.Port))
	err = a.Run(ctx)
	a.Logger().Message("shut down")
	return err
}
