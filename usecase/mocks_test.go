package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vocab-bot/domain/dto"
	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
)

type MockVideoSearch struct {
	mock.Mock
}

func (m *MockVideoSearch) SearchVideoIDs(ctx context.Context, query, pageToken string, maxResults int64) (model.SearchPage, error) {
	args := m.Called(ctx, query, pageToken, maxResults)
	return args.Get(0).(model.SearchPage), args.Error(1)
}

func (m *MockVideoSearch) ListVideoMetadata(ctx context.Context, ids []string) ([]model.VideoMetadata, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VideoMetadata), args.Error(1)
}

type fakeTranscript struct {
	lang      string
	generated bool
	entries   []model.TranscriptEntry
	fetched   *int
	err       error
}

func (t fakeTranscript) LanguageCode() string { return t.lang }
func (t fakeTranscript) IsGenerated() bool    { return t.generated }
func (t fakeTranscript) Fetch(context.Context) ([]model.TranscriptEntry, error) {
	if t.fetched != nil {
		*t.fetched++
	}
	if t.err != nil {
		return nil, t.err
	}
	return t.entries, nil
}

type fakeTranscriptList struct {
	generated map[string]fakeTranscript
	manual    map[string]fakeTranscript
}

func find(tracks map[string]fakeTranscript, langs []string) (repository.Transcript, error) {
	for _, l := range langs {
		if t, ok := tracks[l]; ok {
			return t, nil
		}
	}
	return nil, repository.ErrTranscriptNotFound
}

func (l fakeTranscriptList) FindGeneratedTranscript(langs ...string) (repository.Transcript, error) {
	return find(l.generated, langs)
}

func (l fakeTranscriptList) FindManuallyCreatedTranscript(langs ...string) (repository.Transcript, error) {
	return find(l.manual, langs)
}

// fakeTranscriptProvider serves lists per video; errs fail the listing.
type fakeTranscriptProvider struct {
	lists   map[string]fakeTranscriptList
	errs    map[string]error
	proxies []string
}

func (p *fakeTranscriptProvider) ListTranscripts(_ context.Context, proxy, videoID string) (repository.TranscriptList, error) {
	p.proxies = append(p.proxies, proxy)
	if err, ok := p.errs[videoID]; ok {
		return nil, err
	}
	list, ok := p.lists[videoID]
	if !ok {
		return fakeTranscriptList{}, nil
	}
	return list, nil
}

type MockLinkCache struct {
	mock.Mock
}

func (m *MockLinkCache) Get(ctx context.Context, key, field string) (string, bool, error) {
	args := m.Called(ctx, key, field)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLinkCache) Set(ctx context.Context, key, field, value string) error {
	args := m.Called(ctx, key, field, value)
	return args.Error(0)
}

type MockSeenLedger struct {
	mock.Mock
}

func (m *MockSeenLedger) Load(ctx context.Context, key string) (model.SeenSet, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.SeenSet), args.Error(1)
}

func (m *MockSeenLedger) Save(ctx context.Context, key string, seen model.SeenSet) error {
	args := m.Called(ctx, key, seen)
	return args.Error(0)
}

type MockLinkQueue struct {
	mock.Mock
}

func (m *MockLinkQueue) Enqueue(ctx context.Context, key model.LinkKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockOutcomePublisher struct {
	mock.Mock
}

func (m *MockOutcomePublisher) Publish(ctx context.Context, event dto.LinkOutcomeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockVideoFinder stubs the pipeline for link usecase tests.
type MockVideoFinder struct {
	mock.Mock
}

func (m *MockVideoFinder) Search(ctx context.Context, word string, seen model.SeenSet, maxResults int) ([]model.Candidate, error) {
	args := m.Called(ctx, word, seen, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Candidate), args.Error(1)
}

func (m *MockVideoFinder) FetchTranscripts(ctx context.Context, videoID, lang string) ([]repository.Transcript, error) {
	args := m.Called(ctx, videoID, lang)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Transcript), args.Error(1)
}

func (m *MockVideoFinder) GetLink(ctx context.Context, videoID, word, lang string) (string, error) {
	args := m.Called(ctx, videoID, word, lang)
	return args.String(0), args.Error(1)
}

func (m *MockVideoFinder) Resolve(ctx context.Context, word, lang string, seen model.SeenSet, maxResults int) (string, error) {
	args := m.Called(ctx, word, lang, seen, maxResults)
	return args.String(0), args.Error(1)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newSearchExecutor(t *testing.T, clients ...repository.IVideoSearch) *keypool.Executor[repository.IVideoSearch] {
	t.Helper()
	byKey := make(map[string]repository.IVideoSearch, len(clients))
	keys := make([]string, 0, len(clients))
	for i, c := range clients {
		key := "test-key-" + string(rune('a'+i))
		byKey[key] = c
		keys = append(keys, key)
	}
	pool, err := keypool.NewCredentialPool(t.Name(), keys, func(key string) (repository.IVideoSearch, error) {
		return byKey[key], nil
	})
	require.NoError(t, err)
	return keypool.NewExecutor(pool, keypool.ExecutorConfig{Sleep: noSleep})
}

func newProxyExecutor(t *testing.T, proxies ...string) *keypool.ProxyExecutor {
	t.Helper()
	return keypool.NewProxyExecutor(keypool.NewProxyPool(t.Name(), proxies), nil)
}

func suitable(id, title string) model.VideoMetadata {
	return model.VideoMetadata{
		ID:                   id,
		Title:                title,
		LiveBroadcastContent: "none",
		CategoryID:           "27",
		Duration:             90 * time.Second,
	}
}

// proxyFailingProvider fails with a transport error on the listed proxies.
type proxyFailingProvider struct {
	inner *fakeTranscriptProvider
	bad   map[string]bool
}

func (p *proxyFailingProvider) ListTranscripts(ctx context.Context, proxy, videoID string) (repository.TranscriptList, error) {
	if p.bad[proxy] {
		return nil, keypool.ErrTransport
	}
	return p.inner.ListTranscripts(ctx, proxy, videoID)
}

// memSeenLedger keeps seen sets across usecase instances.
type memSeenLedger struct {
	sets map[string]model.SeenSet
}

func (l *memSeenLedger) Load(_ context.Context, key string) (model.SeenSet, error) {
	return model.NewSeenSet(l.sets[key].IDs()...), nil
}

func (l *memSeenLedger) Save(_ context.Context, key string, seen model.SeenSet) error {
	if l.sets == nil {
		l.sets = make(map[string]model.SeenSet)
	}
	l.sets[key] = model.NewSeenSet(seen.IDs()...)
	return nil
}

type memLinkCache struct {
	values map[string]string
}

func (c *memLinkCache) Get(_ context.Context, key, field string) (string, bool, error) {
	v, ok := c.values[key+"/"+field]
	return v, ok, nil
}

func (c *memLinkCache) Set(_ context.Context, key, field, value string) error {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key+"/"+field] = value
	return nil
}

// flakyProvider fails the first failures listings with a transport error.
type flakyProvider struct {
	inner    *fakeTranscriptProvider
	failures int
}

func (p *flakyProvider) ListTranscripts(ctx context.Context, proxy, videoID string) (repository.TranscriptList, error) {
	if p.failures > 0 {
		p.failures--
		return nil, keypool.ErrTransport
	}
	return p.inner.ListTranscripts(ctx, proxy, videoID)
}

// fetchFailingProvider serves one track per video whose download fails with a
// transport error when listed through a proxy in bad.
type fetchFailingProvider struct {
	entries []model.TranscriptEntry
	lang    string
	bad     map[string]bool
	proxies []string
}

func (p *fetchFailingProvider) ListTranscripts(_ context.Context, proxy, _ string) (repository.TranscriptList, error) {
	p.proxies = append(p.proxies, proxy)
	track := fakeTranscript{lang: p.lang, generated: true, entries: p.entries}
	if p.bad[proxy] {
		track.err = keypool.ErrTransport
	}
	return fakeTranscriptList{generated: map[string]fakeTranscript{p.lang: track}}, nil
}
