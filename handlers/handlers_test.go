package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/nijaru/yt-summary/config"
	"github.com/nijaru/yt-summary/scraper"
	"github.com/nijaru/yt-summary/summary"
	"github.com/nijaru/yt-summary/transcription"
)

type roundTripperFunc func(req *http.Request) *http.Response

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

type sourceFunc func(ctx context.Context, videoID string) ([]transcription.Segment, error)

func (f sourceFunc) Segments(ctx context.Context, videoID string) ([]transcription.Segment, error) {
	return f(ctx, videoID)
}

type fakeLLM struct {
	calls  int32
	prompt atomic.Value
	err    error
}

func (f *fakeLLM) Summarize(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.prompt.Store(prompt)
	if f.err != nil {
		return "", f.err
	}
	return "A summary.", nil
}

type testDeps struct {
	sourceCalls int32
	titleCalls  int32
	llm         *fakeLLM
	noCaptions  bool
}

func newTestHandler(t *testing.T, deps *testDeps, rateLimit int) *Handler {
	t.Helper()

	source := sourceFunc(func(ctx context.Context, videoID string) ([]transcription.Segment, error) {
		atomic.AddInt32(&deps.sourceCalls, 1)
		if deps.noCaptions {
			return nil, apperrors.TranscriptUnavailable("test", nil, "no captions available for this video")
		}
		return []transcription.Segment{{Text: "hello"}, {Text: "world"}}, nil
	})

	titles := &scraper.TitleFetcher{HTTPClient: &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) *http.Response {
			atomic.AddInt32(&deps.titleCalls, 1)
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"text/html"}},
				Body:       io.NopCloser(strings.NewReader("<html><head><title>My Video</title></head></html>")),
				Request:    req,
			}
		}),
	}}

	if deps.llm == nil {
		deps.llm = &fakeLLM{}
	}

	svc := summary.NewService(transcription.NewService(source, nil, "en"), titles, deps.llm, 10*time.Second)
	return NewHandler(svc, &config.Config{
		RateLimit:         rateLimit,
		RateLimitInterval: time.Second,
	})
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON error body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestSummarizeHandler(t *testing.T) {
	deps := &testDeps{}
	handler := newTestHandler(t, deps, 5)

	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, postForm("/summarize", url.Values{
		"url":                     {"https://www.youtube.com/watch?v=abc123"},
		"additional_instructions": {"Keep it short."},
	}))

	if status := rr.Code; status != http.StatusOK {
		t.Fatalf("handler returned wrong status code: got %v want %v, body %s", status, http.StatusOK, rr.Body.String())
	}

	var result summary.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}

	expected := summary.Result{
		URL:        "https://www.youtube.com/watch?v=abc123",
		Title:      "My Video",
		Summary:    "A summary.",
		Transcript: "hello world",
	}
	if result != expected {
		t.Errorf("handler returned unexpected body: got %+v want %+v", result, expected)
	}

	prompt, _ := deps.llm.prompt.Load().(string)
	for _, want := range []string{"ADDITIONAL INSTRUCTIONS: Keep it short.", "TITLE: My Video", "TRANSCRIPT: hello world"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSummarizeHandler_RootPath(t *testing.T) {
	deps := &testDeps{}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Routes().ServeHTTP(rr, postForm("/", url.Values{"url": {"https://youtu.be/abc123"}}))

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 on root path, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSummarizeHandler_MissingURL(t *testing.T) {
	for _, values := range []url.Values{{}, {"url": {"   "}}} {
		deps := &testDeps{}
		rr := httptest.NewRecorder()
		newTestHandler(t, deps, 5).Summarize(rr, postForm("/summarize", values))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
		if body := decodeError(t, rr); body["error"] != string(apperrors.KindMissingParameter) {
			t.Errorf("unexpected error body %v", body)
		}
		if deps.sourceCalls != 0 || deps.titleCalls != 0 || deps.llm.calls != 0 {
			t.Errorf("expected no downstream calls, got source=%d title=%d llm=%d",
				deps.sourceCalls, deps.titleCalls, deps.llm.calls)
		}
	}
}

func TestSummarizeHandler_MethodNotAllowed(t *testing.T) {
	deps := &testDeps{}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/summarize?url=https://youtu.be/abc123", nil)
	newTestHandler(t, deps, 5).Summarize(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "Method Not Allowed" {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Errorf("expected Allow: POST, got %q", rr.Header().Get("Allow"))
	}
	if deps.sourceCalls != 0 || deps.llm.calls != 0 {
		t.Error("expected no processing for GET")
	}
}

func TestSummarizeHandler_NoCaptions(t *testing.T) {
	deps := &testDeps{noCaptions: true}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Summarize(rr, postForm("/summarize", url.Values{"url": {"https://youtu.be/abc123"}}))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != string(apperrors.KindTranscriptUnavailable) {
		t.Errorf("unexpected error body %v", body)
	}
	if deps.llm.calls != 0 {
		t.Errorf("expected no LLM call, got %d", deps.llm.calls)
	}
}

func TestSummarizeHandler_UnsupportedURL(t *testing.T) {
	deps := &testDeps{}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Summarize(rr, postForm("/summarize", url.Values{"url": {"https://vimeo.com/12345"}}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != string(apperrors.KindUnsupportedURL) {
		t.Errorf("unexpected error body %v", body)
	}
	if deps.sourceCalls != 0 {
		t.Error("expected no transcript fetch for unsupported URL")
	}
}

func TestSummarizeHandler_LLMFailure(t *testing.T) {
	deps := &testDeps{llm: &fakeLLM{err: apperrors.LLMRequestFailed("test", nil, "LLM rate limit exceeded")}}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Summarize(rr, postForm("/summarize", url.Values{"url": {"https://youtu.be/abc123"}}))

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["message"] != "LLM rate limit exceeded" {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestSummarizeHandler_RateLimited(t *testing.T) {
	deps := &testDeps{}
	handler := newTestHandler(t, deps, 1)
	values := url.Values{"url": {"https://youtu.be/abc123"}}

	rr := httptest.NewRecorder()
	handler.Summarize(rr, postForm("/summarize", values))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.Summarize(rr, postForm("/summarize", values))
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rr.Code)
	}
	if deps.sourceCalls != 1 {
		t.Errorf("expected rate-limited request not to fetch, got %d fetches", deps.sourceCalls)
	}
}

func TestTranscriptHandler(t *testing.T) {
	deps := &testDeps{}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Routes().ServeHTTP(rr, postForm("/transcript", url.Values{
		"url":             {"https://www.youtube.com/watch?v=abc123&list=PL1"},
		"ignore_playlist": {"true"},
	}))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result summary.TranscriptResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.VideoID != "abc123" || result.Transcript != "hello world" {
		t.Errorf("unexpected result %+v", result)
	}
	if deps.llm.calls != 0 || deps.titleCalls != 0 {
		t.Error("transcript endpoint must not fetch the title or call the LLM")
	}
}

func TestHealthCheck(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthCheck(rr, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"status":"ok"}` {
		t.Errorf("unexpected body %s", rr.Body.String())
	}
}

func TestConcurrentRequests(t *testing.T) {
	deps := &testDeps{}
	handler := newTestHandler(t, deps, 100)

	var wg sync.WaitGroup
	errCh := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			handler.Summarize(rr, postForm("/summarize", url.Values{
				"url": {fmt.Sprintf("https://youtu.be/video%d", i)},
			}))
			if rr.Code != http.StatusOK {
				errCh <- fmt.Errorf("request %d: status %d", i, rr.Code)
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Error(err)
	}
	if deps.llm.calls != 10 {
		t.Errorf("expected 10 LLM calls, got %d", deps.llm.calls)
	}
}

func TestSummarizeHandler_MissingURLKeepsRateBudget(t *testing.T) {
	deps := &testDeps{}
	handler := newTestHandler(t, deps, 1)

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.Summarize(rr, postForm("/summarize", url.Values{"url": {" "}}))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.Summarize(rr, postForm("/summarize", url.Values{"url": {"https://youtu.be/abc123"}}))
	if rr.Code != http.StatusOK {
		t.Errorf("expected valid request to pass the limiter, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSummarizeHandler_NonHTTPURL(t *testing.T) {
	deps := &testDeps{}
	rr := httptest.NewRecorder()
	newTestHandler(t, deps, 5).Summarize(rr, postForm("/summarize", url.Values{"url": {"ftp://www.youtube.com/watch?v=abc123"}}))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body["error"] != string(apperrors.KindUnsupportedURL) {
		t.Errorf("unexpected error body %v", body)
	}
	if deps.sourceCalls != 0 || deps.titleCalls != 0 {
		t.Errorf("expected no fetches, got source=%d title=%d", deps.sourceCalls, deps.titleCalls)
	}
}
