package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/infrastructure/storage"
	"MarketBrief/internal/ports"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	store, err := storage.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "usecase.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTopic(t *testing.T, store ports.Store, label string, region domain.Region) domain.TrackedTopic {
	t.Helper()
	topic, err := store.CreateTopic(context.Background(), domain.TrackedTopic{
		Label: label, Region: region, Active: true, CreatedAt: testNow,
	})
	require.NoError(t, err)
	return topic
}

func insertArticle(t *testing.T, store ports.Store, link, tag string, created time.Time) domain.Article {
	t.Helper()
	a, inserted, err := store.InsertArticle(context.Background(), domain.Article{
		Title:     "title " + link,
		Link:      link,
		Source:    "Reuters",
		Region:    domain.RegionUS,
		Snippet:   "snippet for " + link,
		TopicTag:  tag,
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.True(t, inserted)
	return a
}

type stubSource struct {
	mu         sync.Mutex
	candidates map[string][]domain.Candidate
	errs       map[string]error
	panics     bool
	runs       int
}

func (s *stubSource) BeginRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
}

func (s *stubSource) Candidates(_ context.Context, topic domain.TrackedTopic) ([]domain.Candidate, error) {
	if s.panics {
		panic("source exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[topic.Label]; err != nil {
		return nil, err
	}
	return s.candidates[topic.Label], nil
}

type stubExtractor struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []string
}

func (e *stubExtractor) Extract(_ context.Context, url string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, url)
	body, ok := e.bodies[url]
	return body, ok
}

// scriptedModel replays responses in order; a nil-string entry with an error
// simulates a failed call. The last reply repeats once the script runs out.
type scriptedModel struct {
	mu      sync.Mutex
	replies []reply
	prompts []ports.GenerationRequest
}

type reply struct {
	text string
	err  error
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(_ context.Context, req ports.GenerationRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, req)
	if len(m.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r.text, r.err
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type stubNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *stubNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, digest)
	return n.err
}

func candidate(link string) domain.Candidate {
	published := testNow.Add(-time.Hour)
	return domain.Candidate{
		Title:       "headline " + link,
		Link:        link,
		PublishedAt: &published,
		Source:      "Reuters",
		Region:      domain.RegionUS,
		Snippet:     "short",
	}
}

const longSummary = "엔비디아 실적이 시장 예상을 크게 웃돌았다. 데이터센터 매출이 사상 최대를 기록했다.\n\n투자자들은 공급망 제약을 주시하고 있다."
