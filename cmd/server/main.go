// Command server runs the operator HTTP API for the question pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/prefpoll/prefpoll/infrastructure/middleware"
	"github.com/prefpoll/prefpoll/infrastructure/mongodb"
	"github.com/prefpoll/prefpoll/infrastructure/openai"
	"github.com/prefpoll/prefpoll/internal/application"
	"github.com/prefpoll/prefpoll/internal/transport/rest"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("load config: ", err)
	}

	ctx := context.Background()

	db, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal("connect mongodb: ", err)
	}
	defer db.Client().Disconnect(ctx)
	log.Println("connected to mongodb")

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
	submitter := application.NewSubmitter(questions, batches, units, svc, metrics, encoder, cfg.MaxBatchLines)
	ingestor := application.NewIngestor(questions, units, answers, batches, svc, metrics)
	analytics := application.NewAnalytics(questions, batches, answers)

	router := rest.NewRouter(&rest.Container{
		Questions: questions,
		Batches:   batches,
		Submitter: submitter,
		Ingestor:  ingestor,
		Analytics: analytics,
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown: ", err)
	}
	log.Println("stopped")
}
