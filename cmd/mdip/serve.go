// Copyright (c) 2025 Michael D Henderson. All rights reserved.

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

	"github.com/mdhender/mdip/config"
	"github.com/mdhender/mdip/pipelines/csvload"
	"github.com/mdhender/mdip/web/auth"
	"github.com/mdhender/mdip/web/handlers"
	"github.com/spf13/cobra"
)

func cmdServe() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "serve",
		Short:        "run the dashboard web server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
	addDBFlag(cmd.Flags())
	cmd.Flags().String("addr", config.Default.Addr, "HTTP listen address")
	cmd.Flags().Duration("timeout", config.Default.Timeout, "auto-shutdown after duration (e.g., 5s, 1m)")
	return cmd
}

func serve(cfg *config.Config) error {
	s, err := openStore(cfg.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	sessions := auth.NewSessionStoreWithTTL(cfg.SessionTTL)
	stopPruning := pruneSessions(sessions, sessionPruneInterval)
	defer stopPruning()
	h := handlers.New(s, sessions, csvload.NewLoader(s), handlers.Options{
		BcryptCost:     cfg.BcryptCost,
		UploadMaxBytes: cfg.UploadMaxBytes,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	if cfg.Timeout > 0 {
		go func() {
			log.Printf("server: will auto-shutdown in %v", cfg.Timeout)
			time.Sleep(cfg.Timeout)
			log.Printf("server: timeout reached, initiating shutdown")
			shutdown <- os.Interrupt
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	select {
	case <-shutdown:
	case err := <-listenErr:
		return fmt.Errorf("server: %w", err)
	}
	log.Printf("server: shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown error: %w", err)
	}

	log.Printf("server: stopped")
	return nil
}

const sessionPruneInterval = 15 * time.Minute

// pruneSessions drops expired sessions every interval until the returned func is called.
func pruneSessions(sessions *auth.SessionStore, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := sessions.Prune(); n > 0 {
					log.Printf("auth: pruned %d expired session(s)", n)
				}
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
