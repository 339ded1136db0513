// ABOUTME: Local stand-in for the managed backend — auth, REST subset, and watch URLs.
// ABOUTME: Usage: fake-backend [-addr :8091] [-db :memory:] [-admin-email ops@example.com]
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/streamrokuo/rokuo-admin/internal/fakebackend"
)

func main() {
	addr := flag.String("addr", ":8091", "HTTP listen address")
	dbPath := flag.String("db", ":memory:", "SQLite database path")
	adminEmail := flag.String("admin-email", "ops@example.com", "Seeded admin email")
	adminPassword := flag.String("admin-password", "hunter22", "Seeded admin password")
	secret := flag.String("secret", "fake-backend-dev-secret", "JWT signing secret")
	mediaBase := flag.String("media-base", "https://media.invalid", "Base URL for signed playback links")
	seed := flag.Bool("seed", true, "Seed demo data on startup")
	flag.Parse()

	if err := run(*addr, *dbPath, *adminEmail, *adminPassword, *secret, *mediaBase, *seed); err != nil {
		log.Fatal(err)
	}
}

func run(addr, dbPath, adminEmail, adminPassword, secret, mediaBase string, seed bool) error {
	store, err := fakebackend.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if seed {
		if err := store.Seed(adminEmail, adminPassword); err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		fmt.Printf("seeded demo data; admin sign-in: %s\n", adminEmail)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           fakebackend.NewServer(store, []byte(secret), mediaBase),
		ReadHeaderTimeout: 10 * time.Second,
	}

	fmt.Printf("fake backend listening on %s\n", addr)
	return srv.ListenAndServe()
}
