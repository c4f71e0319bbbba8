package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/db"
	"github.com/nijaru/yt-summary/llm"
	"github.com/nijaru/yt-summary/middleware"
	"github.com/nijaru/yt-summary/scraper"
	"github.com/nijaru/yt-summary/summary"
	"github.com/nijaru/yt-summary/transcription"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewService builds the summary pipeline from cfg. The returned closer
// releases the transcript cache when one is enabled. Without an API key the
// service still serves transcripts and rejects summaries.
func NewService(cfg *config.Config) (*summary.Service, io.Closer, error) {
	var (
		cache  transcription.Cache
		closer io.Closer = nopCloser{}
	)
	if cfg.CacheEnabled {
		store, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open transcript cache")
		}
		cache, closer = store, store

		entries, err := store.Count(context.Background())
		if err != nil {
			store.Close()
			return nil, nil, errors.Wrap(err, "read transcript cache")
		}
		logrus.WithFields(logrus.Fields{
			"path":    cfg.DBPath,
			"entries": entries,
		}).Info("Transcript cache enabled")
	}

	transcripts := transcription.NewService(
		transcription.NewInnertubeSource(cfg.TranscriptLanguage, cfg.FetchTimeout),
		cache,
		cfg.TranscriptLanguage,
	)
	titles := scraper.NewTitleFetcher(cfg.FetchTimeout)

	var summarizer summary.Summarizer
	if cfg.OpenAIAPIKey == "" {
		logrus.Warn("OPENAI_API_KEY is not set; summaries are disabled")
	} else {
		client, err := llm.NewClient(llm.Config{
			APIKey:    cfg.OpenAIAPIKey,
			BaseURL:   cfg.OpenAIBaseURL,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.OpenAIMaxTokens,
			Timeout:   cfg.LLMTimeout,
		})
		if err != nil {
			closer.Close()
			return nil, nil, errors.Wrap(err, "create LLM client")
		}
		summarizer = client
	}

	return summary.NewService(transcripts, titles, summarizer, cfg.RequestTimeout), closer, nil
}

// NewRouter returns the full HTTP surface wrapped in the request id,
// logging and panic recovery middleware.
func NewRouter(cfg *config.Config) (http.Handler, io.Closer, error) {
	svc, closer, err := NewService(cfg)
	if err != nil {
		return nil, nil, err
	}

	routes := NewHandler(svc, cfg).Routes()
	return middleware.Chain(routes,
		middleware.RequestID,
		middleware.Logging,
		middleware.Recover,
	), closer, nil
}
