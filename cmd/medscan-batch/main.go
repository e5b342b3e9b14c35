package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/async"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/export"
	"github.com/joseph-ayodele/medscan/internal/extract"
	"github.com/joseph-ayodele/medscan/internal/ingest"
	"github.com/joseph-ayodele/medscan/internal/metrics"
	"github.com/joseph-ayodele/medscan/internal/ocr"
	"github.com/joseph-ayodele/medscan/internal/pipeline"
	repo "github.com/joseph-ayodele/medscan/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type summary struct {
	scanned      int
	queued       int
	deduplicated int
	processed    int
	failures     int
}

func main() {
	var (
		inmem       = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir         = flag.String("dir", "", "directory of lab reports and medication labels (required)")
		out         = flag.String("out", "", "output XLSX file path (defaults to config export path, then the parent directory)")
		kindStr     = flag.String("kind", "auto", "document kind: lab | medication | auto")
		watch       = flag.Bool("watch", false, "keep running and process new files as they appear")
		skipHidden  = flag.Bool("skip-hidden", true, "skip dot files and directories")
		ratePerSec  = flag.Float64("rate", 0, "max documents started per second (0 = unlimited)")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	kind, ok := constants.CanonicalizeKind(*kindStr)
	if !ok {
		printError("Error: unknown --kind %q\n", *kindStr)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.Store.DSN = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = cfg.Batch.ExportPath
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "medscan-review.xlsx")
	}

	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, repo.ConfigFrom(cfg.Store), logger)
	if err != nil {
		logger.Error("failed to open review store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	proposals := repo.NewProposalRepository(db, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	textExtractor := extract.NewOCRAdapter(ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger), logger)
	processor := pipeline.NewProcessor(logger,
		pipeline.NewOCRStage(textExtractor, logger),
		pipeline.NewParseStage(extract.NewEngine(extract.WithLogger(logger)), true, logger),
		pipeline.WithStore(proposals),
		pipeline.WithRecorder(recorder),
	)
	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Batch.Workers),
		async.WithQueueSize(cfg.Batch.QueueSize),
		async.WithProcessTimeout(cfg.Batch.JobTimeout),
		async.WithRateLimit(*ratePerSec, cfg.Batch.Workers),
		async.WithObserver(recorder),
	)

	var sum summary
	g, gctx := errgroup.WithContext(ctx)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	// collect results until the queue closes them
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range queue.Results() {
			if r.Err != nil {
				sum.failures++
				continue
			}
			sum.processed++
		}
	}()

	feedErr := feed(gctx, logger, queue, *dir, kind, *skipHidden, *watch, &sum)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Batch.JobTimeout+30*time.Second)
	if err := queue.Shutdown(drainCtx); err != nil {
		logger.Warn("queue did not drain cleanly", "error", err)
	}
	cancel()
	<-collected

	stop() // releases the metrics server goroutines
	if err := g.Wait(); err != nil {
		logger.Error("batch background task failed", "error", err)
	}
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		logger.Error("failed to scan directory", "error", feedErr)
		os.Exit(1)
	}

	logger.Info("exporting to XLSX", "output", *out)
	exportCtx, cancelExport := context.WithTimeout(context.Background(), time.Minute)
	defer cancelExport()
	xlsxBytes, err := export.NewService(proposals, logger).ExportStatusXLSX(exportCtx, constants.ReviewPending)
	if err != nil {
		logger.Error("failed to export proposals", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"files_scanned", sum.scanned,
		"files_queued", sum.queued,
		"deduplicated", sum.deduplicated,
		"files_processed", sum.processed,
		"failures", sum.failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files queued: %d (%d duplicates skipped)\n", sum.queued, sum.deduplicated)
	fmt.Printf("- Proposals created: %d\n", sum.processed)
	fmt.Printf("- Failures: %d\n", sum.failures)
	fmt.Printf("- Review workbook: %s\n", *out)
}

// feed scans dir into the queue and, in watch mode, keeps enqueueing new
// files until ctx is cancelled.
func feed(ctx context.Context, logger *slog.Logger, q async.Queue, dir string, kind constants.DocumentKind, skipHidden, watch bool, sum *summary) error {
	results, stats, err := ingest.ScanDirectory(ctx, dir, nil, skipHidden)
	if err != nil {
		return err
	}
	sum.scanned = int(stats.Matched)
	sum.deduplicated = int(stats.Deduplicated)
	logger.Info("scan complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	for _, r := range results {
		if !r.Usable() {
			if r.Err != "" {
				logger.Warn("skipping unreadable file", "path", r.Path, "error", r.Err)
			}
			continue
		}
		if err := q.Enqueue(ctx, async.Job{Path: r.Path, Kind: kind, TraceID: r.HashHex}); err != nil {
			return err
		}
		sum.queued++
	}
	if !watch {
		return nil
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:    []string{dir},
		Debounce: 500 * time.Millisecond,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	logger.Info("watching for new documents", "dir", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch error", "error", err)
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if skipHidden && ingest.IsHidden(path) {
				continue
			}
			hashHex, _, err := ingest.HashFile(path)
			if err != nil {
				logger.Warn("skipping unreadable file", "path", path, "error", err)
				continue
			}
			if err := q.Enqueue(ctx, async.Job{Path: path, Kind: kind, TraceID: hashHex}); err != nil {
				return err
			}
			sum.queued++
		}
	}
}
