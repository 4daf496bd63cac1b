package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"scan-fill/pkg/config"
	"scan-fill/pkg/handlers"
	"scan-fill/pkg/services/document"
	"scan-fill/pkg/services/ocr"
	"scan-fill/pkg/session"
	"scan-fill/pkg/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scan-fill",
		Short: "Fill a spreadsheet from scanned documents",
		Long: `scan-fill reads scanned pages with OCR, parses each comma-separated line
into a row matching the spreadsheet's columns, and merges the rows into the
spreadsheet by the identifier in its first column.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), extractCmd(), mergeCmd(), filterCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	scanner, err := newScanner(cfg)
	if err != nil {
		return err
	}

	// Scan history is optional
	var history store.Recorder = store.Nop{}
	if cfg.DatabaseURL != "" {
		h, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer h.Close()
		history = h
		log.Println("[serve] recording scan history")
	}

	sessions := session.NewManager()
	srv := handlers.NewServer(sessions, scanner, history, cfg.OnUnmatched, cfg.MaxUploadBytes)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	r := gin.Default()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	srv.Register(r)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, sessions, cfg.SessionTTL)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[serve] listening on %s (engine %s, on_unmatched=%s)", httpSrv.Addr, scanner.Engine(), cfg.OnUnmatched)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[serve] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func sweep(ctx context.Context, sessions *session.Manager, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(ttl); n > 0 {
				log.Printf("[serve] expired %d idle session(s)", n)
			}
		}
	}
}

func newScanner(cfg *config.Config) (*document.Scanner, error) {
	recognizer, err := ocr.New(cfg.OCROptions())
	if err != nil {
		return nil, err
	}
	rasterizer := document.NewPopplerRasterizer(cfg.PDFDPI, cfg.ConvertTimeout)
	return document.NewScanner(recognizer, rasterizer), nil
}
