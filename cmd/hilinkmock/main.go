// Package main runs the HiLink router emulator for manual end-to-end runs.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radio-control/bandlock/internal/band"
	"github.com/radio-control/bandlock/internal/routermock"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	username := flag.String("username", "admin", "web interface user")
	password := flag.String("password", "admin", "web interface password")
	available := flag.String("available", "B3,B7,B20,B28", "bands with coverage")
	preference := flag.String("preference", "B3,B7,B28,B20", "firmware band preference")
	sticky := flag.Int("sticky", 1, "single-band writes ignored before the candidate sticks")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := routermock.DefaultConfig()
	cfg.Username = *username
	cfg.Password = *password
	cfg.StickyWrites = *sticky
	var err error
	if cfg.Available, err = band.ParseList(*available); err != nil {
		log.Fatalf("Invalid -available: %v", err)
	}
	if cfg.Preference, err = band.ParseList(*preference); err != nil {
		log.Fatalf("Invalid -preference: %v", err)
	}

	router := routermock.New(cfg)
	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      router.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting HiLink emulator on %s (attached to %s)", *addr, router.Attached())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down emulator...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Emulator stopped; %d requests served, final band %s", len(router.Calls()), router.Attached())
}
