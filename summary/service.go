package summary

import (
	"context"
	"strings"
	"time"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/nijaru/yt-summary/prompt"
	"github.com/nijaru/yt-summary/validation"
	"github.com/sirupsen/logrus"
)

type Request struct {
	URL                    string
	AdditionalInstructions string
	IgnorePlaylist         bool
	// Refresh drops any cached transcript before fetching.
	Refresh bool
}

// Result is the response body of a successful summary.
type Result struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Transcript string `json:"transcript"`
}

type TranscriptResult struct {
	URL        string `json:"url"`
	VideoID    string `json:"video_id"`
	Transcript string `json:"transcript"`
}

type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

type TitleFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Evicter is implemented by transcript fetchers that keep a cache.
type Evicter interface {
	Evict(ctx context.Context, videoID string) error
}

type Service struct {
	transcripts TranscriptFetcher
	titles      TitleFetcher
	llm         Summarizer
	timeout     time.Duration
}

// NewService wires the pipeline stages. summarizer may be nil when only
// transcripts are served. A zero timeout leaves the caller's deadline alone.
func NewService(transcripts TranscriptFetcher, titles TitleFetcher, summarizer Summarizer, timeout time.Duration) *Service {
	return &Service{
		transcripts: transcripts,
		titles:      titles,
		llm:         summarizer,
		timeout:     timeout,
	}
}

// Summarize runs resolve, transcript, title, prompt and LLM in order. The
// first failing stage ends the run; nothing partial is returned.
func (s *Service) Summarize(ctx context.Context, req Request) (*Result, error) {
	const op = "SummaryService.Summarize"

	if s.llm == nil {
		return nil, apperrors.Internal(op, nil, "summarizer is not configured")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req.URL = strings.TrimSpace(req.URL)
	logger := logrus.WithField("url", req.URL)

	videoID, err := stage(logger, "resolve", func() (string, error) {
		return resolve(op, req)
	})
	if err != nil {
		return nil, err
	}
	logger = logger.WithField("video_id", videoID)

	if req.Refresh {
		s.evict(ctx, logger, videoID)
	}

	transcript, err := stage(logger, "transcript", func() (string, error) {
		return s.transcripts.Fetch(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	title, err := stage(logger, "title", func() (string, error) {
		return s.titles.Fetch(ctx, req.URL)
	})
	if err != nil {
		return nil, err
	}

	text := prompt.Build(title, transcript, req.AdditionalInstructions)

	summary, err := stage(logger, "llm", func() (string, error) {
		return s.llm.Summarize(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		URL:        req.URL,
		Title:      title,
		Summary:    summary,
		Transcript: transcript,
	}, nil
}

// Transcript resolves the URL and returns the transcript without calling the
// language model.
func (s *Service) Transcript(ctx context.Context, req Request) (*TranscriptResult, error) {
	const op = "SummaryService.Transcript"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req.URL = strings.TrimSpace(req.URL)
	logger := logrus.WithField("url", req.URL)

	videoID, err := stage(logger, "resolve", func() (string, error) {
		return resolve(op, req)
	})
	if err != nil {
		return nil, err
	}

	logger = logger.WithField("video_id", videoID)

	if req.Refresh {
		s.evict(ctx, logger, videoID)
	}

	transcript, err := stage(logger, "transcript", func() (string, error) {
		return s.transcripts.Fetch(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	return &TranscriptResult{URL: req.URL, VideoID: videoID, Transcript: transcript}, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Service) evict(ctx context.Context, logger *logrus.Entry, videoID string) {
	e, ok := s.transcripts.(Evicter)
	if !ok {
		return
	}
	if err := e.Evict(ctx, videoID); err != nil {
		logger.WithError(err).Warn("Failed to evict cached transcript")
	}
}

// resolve expects req.URL to be trimmed already.
func resolve(op string, req Request) (string, error) {
	if req.URL == "" {
		return "", apperrors.MissingParameter(op, "url")
	}
	if err := validation.ValidateURL(req.URL); err != nil {
		return "", apperrors.UnsupportedURL(op, req.URL)
	}
	videoID, ok := validation.ResolveVideoID(req.URL, req.IgnorePlaylist)
	if !ok {
		return "", apperrors.UnsupportedURL(op, req.URL)
	}
	return videoID, nil
}

func stage(logger *logrus.Entry, name string, fn func() (string, error)) (string, error) {
	start := time.Now()
	value, err := fn()

	entry := logger.WithFields(logrus.Fields{
		"stage":    name,
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Warn("Pipeline stage failed")
		return "", err
	}
	entry.Debug("Pipeline stage completed")
	return value, nil
}
