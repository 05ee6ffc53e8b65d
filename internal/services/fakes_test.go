package services_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Lllllllleong/bookcastflow/internal/models"
	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

func fastRetry(attempts int) pipeline.RetryPolicy {
	return pipeline.RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Retryable:      pipeline.IsTransient,
		Sleep:          func(context.Context, time.Duration) error { return nil },
	}
}

// fakePDF serves pages named "p1".."pN".
type fakePDF struct {
	pages    int
	splitErr error
	optErr   error
}

func (f fakePDF) Optimize(pdf []byte) ([]byte, int, error) {
	if f.optErr != nil {
		return nil, 0, f.optErr
	}
	return append([]byte("optimized:"), pdf...), f.pages, nil
}

func (f fakePDF) SplitPages([]byte) ([][]byte, error) {
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	pages := make([][]byte, f.pages)
	for i := range pages {
		pages[i] = []byte(fmt.Sprintf("p%d", i+1))
	}
	return pages, nil
}

// pageExtractor finishes later pages first so completion order is the
// reverse of page order.
type pageExtractor struct {
	calls  atomic.Int32
	mu     sync.Mutex
	seen   map[string]int
	failOn string
}

func (e *pageExtractor) ExtractPageText(ctx context.Context, page []byte) (string, error) {
	e.calls.Add(1)
	name := string(page)
	e.mu.Lock()
	if e.seen == nil {
		e.seen = make(map[string]int)
	}
	e.seen[name]++
	e.mu.Unlock()

	var n int
	fmt.Sscanf(name, "p%d", &n)
	time.Sleep(time.Duration(20-n) * time.Millisecond)
	if name == e.failOn {
		return "", fmt.Errorf("%w: model overloaded", pipeline.ErrUpstreamUnavailable)
	}
	return "text-" + name, nil
}

func (e *pageExtractor) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[name]
}

// scriptModel returns scripted verdicts in order and records the feedback
// each draft received.
type scriptModel struct {
	mu          sync.Mutex
	verdicts    []bool
	drafts      []string
	topicCalls  int
	evalCalls   int
	draftCalls  int
	feedbackLog [][]string
}

func (m *scriptModel) SearchTopics(context.Context, string) ([]models.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topicCalls++
	return []models.Topic{{Title: "t1", Description: "d1"}}, nil
}

func (m *scriptModel) DraftScript(_ context.Context, source string, _ []models.Topic, feedback []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedbackLog = append(m.feedbackLog, append([]string(nil), feedback...))
	i := m.draftCalls
	m.draftCalls++
	if i < len(m.drafts) {
		return m.drafts[i], nil
	}
	return fmt.Sprintf("Speaker1: draft %d of %s\n", i+1, source), nil
}

func (m *scriptModel) EvaluateScript(context.Context, string, []models.Topic) (models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.evalCalls
	m.evalCalls++
	if i < len(m.verdicts) && m.verdicts[i] {
		return models.Evaluation{IsValid: true}, nil
	}
	return models.Evaluation{FeedbackMessage: fmt.Sprintf("feedback %d", i+1)}, nil
}

// echoWriter returns the upper-cased source as the script.
type echoWriter struct{}

func (echoWriter) WriteScript(_ context.Context, source string) (string, error) {
	return strings.ToUpper(source), nil
}

// pcmSynth returns a short tone per call. failures maps chunk prefixes to the
// number of failures before success; empty forces empty payloads.
type pcmSynth struct {
	mu       sync.Mutex
	calls    int
	failures map[string]int
	empty    bool
}

func (s *pcmSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.empty {
		return nil, nil
	}
	for prefix, n := range s.failures {
		if strings.HasPrefix(text, prefix) && n > 0 {
			s.failures[prefix] = n - 1
			return nil, fmt.Errorf("%w: 503", pipeline.ErrUpstreamUnavailable)
		}
	}
	return tonePCM(240, 8000), nil
}

func tonePCM(samples int, amplitude int16) []byte {
	out := make([]byte, 2*samples)
	for i := 0; i < samples; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		out[2*i] = byte(uint16(v))
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// flakyStore fails the first call per path of every operation with an
// upstream error before passing it through.
type flakyStore struct {
	pipeline.ObjectStore
	mu     sync.Mutex
	failed map[string]bool
}

func newFlakyStore(inner pipeline.ObjectStore) *flakyStore {
	return &flakyStore{ObjectStore: inner, failed: make(map[string]bool)}
}

func (s *flakyStore) trip(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + " " + path
	if s.failed[key] {
		return nil
	}
	s.failed[key] = true
	return fmt.Errorf("%s %s: %w", op, path, pipeline.ErrUpstreamUnavailable)
}

func (s *flakyStore) Write(ctx context.Context, path string, data []byte) (string, error) {
	if err := s.trip("write", path); err != nil {
		return "", err
	}
	return s.ObjectStore.Write(ctx, path, data)
}

func (s *flakyStore) WriteIfAbsent(ctx context.Context, path string, data []byte) (string, error) {
	if err := s.trip("write-if-absent", path); err != nil {
		return "", err
	}
	return s.ObjectStore.WriteIfAbsent(ctx, path, data)
}

func (s *flakyStore) Download(ctx context.Context, path string) ([]byte, error) {
	if err := s.trip("download", path); err != nil {
		return nil, err
	}
	return s.ObjectStore.Download(ctx, path)
}

// tocFinder serves a table of contents per page name ("p1".."pN") and fails
// the first read of the pages listed in flaky.
type tocFinder struct {
	pages map[string]models.TableOfContents
	flaky map[string]bool
	mu    sync.Mutex
	calls int
}

func (f *tocFinder) FindChapterStarts(_ context.Context, page []byte) (models.TableOfContents, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	name := string(page)
	if f.flaky[name] {
		delete(f.flaky, name)
		return models.TableOfContents{}, fmt.Errorf("page %s: %w", name, pipeline.ErrUpstreamUnavailable)
	}
	return f.pages[name], nil
}
