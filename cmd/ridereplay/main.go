// Command ridereplay serves a GPX ride replay over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/ride-replay/internal/api"
	"github.com/banshee-data/ride-replay/internal/config"
	"github.com/banshee-data/ride-replay/internal/db"
	"github.com/banshee-data/ride-replay/internal/gpx"
	"github.com/banshee-data/ride-replay/internal/replay"
	"github.com/banshee-data/ride-replay/internal/uploads"
	"github.com/banshee-data/ride-replay/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbPath        = flag.String("db", "rides.db", "SQLite ride store (empty disables saved rides)")
	configPath    = flag.String("config", "", "Tuning config JSON; built-in defaults when empty")
	gpxFile       = flag.String("gpx", "", "GPX file to load at startup")
	migrationsDir = flag.String("migrations", "", "Migrations directory; embedded set when empty")
	uploadDir     = flag.String("uploads", "uploads", "Directory for uploaded GPX files (empty disables)")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

// loadConfig reads the tuning file at path, or returns the defaults.
func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// preload parses the GPX file at path and makes it the active track.
func preload(srv *api.Server, session *replay.Session, path string) error {
	f, err := gpx.ParseFile(path)
	if err != nil {
		return err
	}
	if _, err := session.Load(f.Name, f.Trace); err != nil {
		return err
	}
	srv.SetGPXPath(path)
	if f.Skipped > 0 {
		log.Printf("skipped %d points without coordinates or time in %s", f.Skipped, path)
	}
	return nil
}

// newHandler mounts the API and, when a store is open, its debug routes.
func newHandler(srv *api.Server, store *db.DB) (http.Handler, error) {
	mux := srv.ServeMux()
	if store != nil {
		if err := store.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return api.LoggingMiddleware(mux), nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Print(version.String())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	session, err := replay.New(replay.OptionsFromConfig(cfg), nil)
	if err != nil {
		log.Fatalf("failed to create replay session: %v", err)
	}
	defer session.Close()

	var store *db.DB
	if *dbPath != "" {
		store, err = db.OpenDB(*dbPath, *migrationsDir)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer store.Close()
	}

	var opts api.Options
	if *uploadDir != "" {
		opts.Uploads = uploads.NewStore(*uploadDir, nil)
	}
	srv := api.NewServer(session, store, opts)

	if *gpxFile != "" {
		if err := preload(srv, session, *gpxFile); err != nil {
			log.Fatalf("failed to load %s: %v", *gpxFile, err)
		}
	}

	handler, err := newHandler(srv, store)
	if err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("failed to start server: %v", err)
				stop()
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		// Event streams never finish on their own; fall back to Close.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server close error: %v", err)
			}
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
