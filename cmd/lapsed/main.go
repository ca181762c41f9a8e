// CLAUDE:SUMMARY Entry point for the lapse daemon — chi control API, capture scheduler, config watcher, retention cron.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/lapse/camera"
	"github.com/hazyhaar/lapse/index"
	"github.com/hazyhaar/lapse/storage"
	"github.com/hazyhaar/lapse/timelapse"
	"github.com/hazyhaar/lapse/watch"
)

func main() {
	port := env("PORT", "8080")
	configPath := env("CONFIG_FILE", "config.yaml")
	indexPath := env("INDEX_DB", "db/captures.db")
	cameraBin := env("CAMERA_BIN", "rpicam-still")
	cameraArgs := strings.Fields(os.Getenv("CAMERA_ARGS"))
	logLevel := env("LOG_LEVEL", "info")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if env("LOG_FORMAT", "json") == "text" {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Capture journal. INDEX_DB=off disables it; captures still land on disk.
	var ix *index.Index
	if indexPath != "off" {
		var err error
		ix, err = index.Open(indexPath, index.WithLogger(logger))
		if err != nil {
			slog.Error("index db", "error", err)
			os.Exit(1)
		}
		defer ix.Close()
	}

	store := timelapse.NewStore(configPath, logger)
	cam := camera.NewExec(cameraBin, camera.WithArgs(cameraArgs...))

	opts := []timelapse.Option{timelapse.WithLogger(logger)}
	if ix != nil {
		opts = append(opts, timelapse.WithIndex(ix))
	}
	svc, err := timelapse.New(cam, store, opts...)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	if v := env("AUTOSTART", "false"); v == "1" || v == "true" {
		svc.Start()
	}

	// Pick up out-of-band edits of the config file.
	watcher := watch.New(configPath, watch.Options{Logger: logger})
	go watcher.OnChange(ctx, svc.ReloadFromDisk)

	// Retention sweep. RETENTION_DAYS=0 keeps everything.
	retentionDays, err := strconv.Atoi(env("RETENTION_DAYS", "0"))
	if err != nil || retentionDays < 0 {
		slog.Error("RETENTION_DAYS must be a non-negative integer")
		os.Exit(1)
	}
	if retentionDays > 0 {
		sched := cron.New()
		if _, err := sched.AddFunc("0 3 * * *", func() {
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			org := storage.New(svc.Config().OutputRoot)
			dirs, err := org.PruneBefore(cutoff)
			if err != nil {
				slog.Warn("retention prune", "error", err)
			}
			var rows int64
			if ix != nil {
				rows, err = ix.Cleanup(context.Background(), cutoff)
				if err != nil {
					slog.Warn("retention index cleanup", "error", err)
				}
			}
			slog.Info("retention sweep", "days", retentionDays, "dirs_removed", dirs, "rows_removed", rows)
		}); err != nil {
			slog.Error("retention schedule", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Router.
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Get("/api/config", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Config())
	})
	r.Put("/api/config", func(w http.ResponseWriter, r *http.Request) {
		updateConfig(svc, w, r)
	})
	r.Post("/api/config", func(w http.ResponseWriter, r *http.Request) {
		updateConfig(svc, w, r)
	})

	r.Post("/api/start", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Start())
	})
	r.Post("/api/stop", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Stop())
	})
	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Status())
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		if ix == nil {
			writeJSON(w, 404, map[string]string{"error": "index disabled"})
			return
		}
		stats, err := ix.Stats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, stats)
	})

	r.Get("/api/dates", func(w http.ResponseWriter, _ *http.Request) {
		dates, err := storage.New(svc.Config().OutputRoot).Dates()
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, dates)
	})
	r.Get("/api/dates/{date}/captures", func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		if ix != nil {
			caps, err := ix.ListByDate(r.Context(), date, 0)
			if err != nil {
				writeError(w, 500, err)
				return
			}
			writeJSON(w, 200, caps)
			return
		}
		names, err := storage.New(svc.Config().OutputRoot).List(date)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 200, names)
	})

	r.Get("/images/{date}/{file}", func(w http.ResponseWriter, r *http.Request) {
		date := chi.URLParam(r, "date")
		file := chi.URLParam(r, "file")
		if !safeSegment(date) || !safeSegment(file) {
			writeJSON(w, 400, map[string]string{"error": "bad path"})
			return
		}
		http.ServeFile(w, r, filepath.Join(svc.Config().OutputRoot, date, file))
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	svc.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

// updateConfig decodes the body over the active config, so partial updates
// touch only the fields they name.
func updateConfig(svc *timelapse.Service, w http.ResponseWriter, r *http.Request) {
	cfg := svc.Config()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, 400, err)
		return
	}
	if err := svc.SetConfig(cfg); err != nil {
		if errors.Is(err, timelapse.ErrInvalidConfig) {
			writeError(w, 400, err)
			return
		}
		writeError(w, 500, err)
		return
	}
	writeJSON(w, 200, svc.Config())
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// safeSegment rejects path segments that could escape the image root.
func safeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
