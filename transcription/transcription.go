package transcription

import (
	"context"
	"strings"
	"sync"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/sirupsen/logrus"
)

// Segment is one timed snippet of a transcript. Start and Duration are in
// seconds.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// SegmentSource retrieves the ordered transcript segments of a video.
type SegmentSource interface {
	Segments(ctx context.Context, videoID string) ([]Segment, error)
}

// Cache stores joined transcripts. *db.Store satisfies it.
type Cache interface {
	GetTranscript(ctx context.Context, videoID, language string) (string, bool, error)
	SetTranscript(ctx context.Context, videoID, language, text string) error
	DeleteTranscript(ctx context.Context, videoID, language string) error
}

// JoinSegments concatenates segment texts in order, separated by one space.
func JoinSegments(segments []Segment) string {
	texts := make([]string, len(segments))
	for i, seg := range segments {
		texts[i] = seg.Text
	}
	return strings.Join(texts, " ")
}

type transcriptionLock struct {
	mu   sync.Mutex
	refs int
}

type Service struct {
	source   SegmentSource
	cache    Cache
	language string

	locksMu sync.Mutex
	locks   map[string]*transcriptionLock
}

// NewService returns a fetcher backed by source. cache may be nil.
func NewService(source SegmentSource, cache Cache, language string) *Service {
	return &Service{
		source:   source,
		cache:    cache,
		language: language,
		locks:    make(map[string]*transcriptionLock),
	}
}

// lock serializes work on videoID. Entries are dropped once the last holder
// or waiter releases them.
func (s *Service) lock(videoID string) *transcriptionLock {
	s.locksMu.Lock()
	l, ok := s.locks[videoID]
	if !ok {
		l = &transcriptionLock{}
		s.locks[videoID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return l
}

func (s *Service) unlock(videoID string, l *transcriptionLock) {
	l.mu.Unlock()

	s.locksMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, videoID)
	}
	s.locksMu.Unlock()
}

// Evict removes the cached transcript of videoID so the next Fetch goes to
// the source. It is a no-op without a cache.
func (s *Service) Evict(ctx context.Context, videoID string) error {
	if s.cache == nil || videoID == "" {
		return nil
	}

	l := s.lock(videoID)
	defer s.unlock(videoID, l)

	return s.cache.DeleteTranscript(ctx, videoID, s.language)
}

// Fetch returns the full transcript of videoID.
func (s *Service) Fetch(ctx context.Context, videoID string) (string, error) {
	const op = "transcription.Fetch"

	if videoID == "" {
		return "", apperrors.TranscriptUnavailable(op, nil, "video identifier is required")
	}

	logger := logrus.WithField("video_id", videoID)

	if s.cache == nil {
		return s.fetchFromSource(ctx, videoID)
	}

	l := s.lock(videoID)
	defer s.unlock(videoID, l)

	text, found, err := s.cache.GetTranscript(ctx, videoID, s.language)
	if err != nil {
		logger.WithError(err).Warn("Failed to read transcript cache")
	} else if found {
		logger.Debug("Transcript found in cache")
		return text, nil
	}

	text, err = s.fetchFromSource(ctx, videoID)
	if err != nil {
		return "", err
	}

	if err := s.cache.SetTranscript(ctx, videoID, s.language, text); err != nil {
		logger.WithError(err).Warn("Failed to cache transcript")
	}
	return text, nil
}

func (s *Service) fetchFromSource(ctx context.Context, videoID string) (string, error) {
	const op = "transcription.Fetch"

	segments, err := s.source.Segments(ctx, videoID)
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return "", err
		}
		return "", apperrors.TranscriptUnavailable(op, err, "transcript could not be retrieved")
	}
	if len(segments) == 0 {
		return "", apperrors.TranscriptUnavailable(op, nil, "transcript is empty")
	}

	logrus.WithFields(logrus.Fields{
		"video_id": videoID,
		"segments": len(segments),
	}).Debug("Transcript fetched")
	return JoinSegments(segments), nil
}
