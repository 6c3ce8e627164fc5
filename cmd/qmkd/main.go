// Command qmkd runs the quantum microkernel's HTTP façade: capability
// negotiation, program submission, status/wait/cancel, entanglement
// channel management, and telemetry (§6), backed by the in-process
// Graph IR executor.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neuralground/qmk/internal/app"
	"github.com/neuralground/qmk/internal/config"
)

// version is stamped at release time; "dev" outside a tagged build.
var version = "dev"

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	srv, err := app.NewServer(app.ServerOptions{C: cfg, Version: version})
	if err != nil {
		log.Fatalf("constructing server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := cfg.GetInt("port")
	localOnly := cfg.GetBool("local_only")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(port, localOnly)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server exited: %v", err)
		}
	case <-ctx.Done():
		fmt.Println("shutting down qmkd...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("graceful shutdown failed: %v", err)
		}
	}
}
