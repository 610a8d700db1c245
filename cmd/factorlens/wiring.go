package main

import (
	"github.com/ahrav/go-factorlens/infrastructure/analytics"
	"github.com/ahrav/go-factorlens/infrastructure/api"
	"github.com/ahrav/go-factorlens/infrastructure/stream"
	"github.com/ahrav/go-factorlens/internal/application"
)

// newAnalyzer wires the backend client, the event channel dialer and the
// resilient explanation fetcher into an Analyzer.
func newAnalyzer() *application.Analyzer {
	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.APITimeout()),
		api.WithLogger(logger),
	)

	dialer := stream.NewDialer(cfg.Stream.URL,
		stream.WithLogger(logger),
		stream.WithHandshakeTimeout(cfg.HandshakeTimeout()),
		stream.WithReadLimit(cfg.Stream.ReadLimitBytes),
	)

	fetcher := api.NewExplainFetcher(client, api.StandardMiddleware(cfg.Resilience(), metrics, metrics)...)

	return &application.Analyzer{
		Submitter: client,
		Dialer:    dialer,
		Fetcher:   fetcher,
		Options: []application.SessionOption{
			application.WithSessionLogger(logger),
			application.WithSessionMetrics(metrics),
			application.WithEngine(analytics.NewEngine(cfg.Display.Locale)),
		},
	}
}
