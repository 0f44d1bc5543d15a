// Command batchwatch periodically refreshes the status of non-terminal
// batches and ingests output for batches that newly completed.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/prefpoll/prefpoll/infrastructure/middleware"
	"github.com/prefpoll/prefpoll/infrastructure/mongodb"
	"github.com/prefpoll/prefpoll/infrastructure/openai"
	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/domain"
	"github.com/prefpoll/prefpoll/internal/ports"
)

// maxConcurrentRefreshes bounds in-flight provider status calls per cycle.
const maxConcurrentRefreshes = 8

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	once := flag.Bool("once", false, "run one refresh cycle and exit")
	flag.Parse()

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("connect mongodb: ", err)
	}
	defer db.Client().Disconnect(context.Background())

	client, err := openai.NewClient(cfg.OpenAI)
	if err != nil {
		log.Fatal("create batch client: ", err)
	}
	svc := openai.Chain(client,
		openai.TracingMiddleware(),
		openai.RateLimitMiddleware(rate.Limit(cfg.OpenAI.RequestsPerSecond), cfg.OpenAI.Burst),
	)

	questions := mongodb.NewQuestionStore(db)
	batches := mongodb.NewBatchStore(db)
	units := mongodb.NewUnitStore(db)
	answers := mongodb.NewAnswerStore(db)

	metrics := middleware.NewPrometheusMetrics()
	encoder := application.NewEncoder(cfg.OpenAI.Model)
	watcher := &watcher{
		batches:   batches,
		submitter: application.NewSubmitter(questions, batches, units, svc, metrics, encoder, cfg.MaxBatchLines),
		ingestor:  application.NewIngestor(questions, units, answers, batches, svc, metrics),
	}

	if *once {
		if err := watcher.cycle(ctx); err != nil {
			log.Fatal("refresh cycle: ", err)
		}
		return
	}

	log.Printf("watching batches every %s", cfg.RefreshInterval)
	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		if err := watcher.cycle(ctx); err != nil {
			log.Println("refresh cycle: ", err)
		}
		select {
		case <-ctx.Done():
			log.Println("stopped")
			return
		case <-ticker.C:
		}
	}
}

type watcher struct {
	batches   ports.BatchStore
	submitter *application.Submitter
	ingestor  *application.Ingestor
}

// cycle refreshes every non-terminal batch with bounded concurrency, then
// ingests output for batches that turned completed. Each chunk of a run
// is ingested on its own; the per-batch ingested flag keeps repeat cycles
// from processing a chunk twice. Ingestion runs sequentially.
func (w *watcher) cycle(ctx context.Context) error {
	active, err := w.batches.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return nil
	}
	log.Printf("refreshing %d active batches", len(active))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRefreshes)
	for _, b := range active {
		g.Go(func() error {
			if err := w.submitter.RefreshStatus(gctx, b.ID); err != nil {
				log.Printf("refresh batch %s: %v", b.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, b := range active {
		refreshed, err := w.batches.GetByID(ctx, b.ID)
		if err != nil {
			log.Printf("reload batch %s: %v", b.ID, err)
			continue
		}
		if refreshed.Projection.Status != domain.BatchStatusCompleted || refreshed.Ingested {
			continue
		}

		ingested, skipped, err := w.ingestor.IngestResults(ctx, refreshed)
		if errors.Is(err, domain.ErrNoOutput) {
			log.Printf("batch %s completed without an output file", refreshed.ID)
			continue
		}
		if err != nil {
			log.Printf("ingest batch %s: %v", refreshed.ID, err)
			continue
		}
		log.Printf("batch %s completed: %d answers ingested, %d lines skipped",
			refreshed.ID, ingested, skipped)
	}
	return nil
}
