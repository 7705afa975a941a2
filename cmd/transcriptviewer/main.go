// Command transcriptviewer shows transcripts published to Kafka in a browser.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"speech-session-service/internal/models"
	"speech-session-service/internal/observability/logging"
	"speech-session-service/internal/viewer"
	"speech-session-service/web"
)

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicPartial := flag.String("topic-partial", models.EventTypePartial, "Partial transcript topic")
	topicFinal := flag.String("topic-final", models.EventTypeFinal, "Final transcript topic")
	lookback := flag.Duration("lookback", time.Hour, "Replay transcripts published within this window")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console", Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub(log.With().Str("component", "viewer-hub").Logger())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, web.Static, "viewer.html")
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static)))
	r.Handle("/ws", hub)

	srv := &http.Server{Addr: ":" + *port, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	for _, topic := range []string{*topicPartial, *topicFinal} {
		reader, err := viewer.NewReader(gctx, strings.Split(*brokers, ","), topic, *lookback)
		if err != nil {
			log.Fatal().Err(err).Str("topic", topic).Msg("Failed to open Kafka reader")
		}
		logger := log.With().Str("topic", topic).Logger()
		logger.Info().Dur("lookback", *lookback).Msg("Consuming transcripts")
		g.Go(func() error {
			viewer.Consume(gctx, reader, hub, logger)
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Str("addr", "http://localhost:"+*port).Msg("Transcript viewer listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Transcript viewer failed")
	}
}
