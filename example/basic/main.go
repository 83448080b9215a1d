package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	localguard "github.com/aidamian/local-guard"
)

func main() {
	cfg := localguard.DefaultConfig()

	rt, err := localguard.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Staging mode mints a local session; real deployments log in against the
	// auth service.
	if err := rt.Login(ctx, "dev", "dev"); err != nil {
		log.Fatalf("login: %v", err)
	}
	rt.SetConsent(true)

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("agent exited: %v", err)
	}
}
