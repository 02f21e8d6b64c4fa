package transcript

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
)

const timedTextBody = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="10.2" dur="2.1">buenos d&amp;iacute;as</text>
<text start="42.7" dur="3">&lt;i&gt;¡Hola&lt;/i&gt; a todos</text>
<text start="50" dur="1">   </text>
</transcript>`

func watchPage(serverURL string) string {
	return fmt.Sprintf(`<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},
"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
{"baseUrl":"%[1]s/api/timedtext?v=vid&lang=es&kind=asr&fmt=srv3","languageCode":"es","kind":"asr","name":{"simpleText":"Spanish {auto}"}},
{"baseUrl":"%[1]s/api/timedtext?v=vid&lang=es","languageCode":"es","name":{"simpleText":"Spanish"}}]}}};var meta = {};</script></html>`, serverURL)
}

func newTestServer(t *testing.T, watch func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/watch", watch)
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("fmt"))
		_, _ = w.Write([]byte(timedTextBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_ListAndFetch(t *testing.T) {
	var srv *httptest.Server
	srv = newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vid", r.URL.Query().Get("v"))
		_, _ = w.Write([]byte(watchPage(srv.URL)))
	})
	provider := NewProvider(Config{BaseURL: srv.URL})

	list, err := provider.ListTranscripts(context.Background(), keypool.DirectProxy, "vid")
	require.NoError(t, err)

	generated, err := list.FindGeneratedTranscript("es")
	require.NoError(t, err)
	assert.True(t, generated.IsGenerated())
	assert.Equal(t, "es", generated.LanguageCode())

	manual, err := list.FindManuallyCreatedTranscript("fr", "es")
	require.NoError(t, err)
	assert.False(t, manual.IsGenerated())

	_, err = list.FindManuallyCreatedTranscript("de")
	assert.ErrorIs(t, err, repository.ErrTranscriptNotFound)

	entries, err := manual.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "buenos días", entries[0].Text)
	assert.Equal(t, "¡Hola a todos", entries[1].Text)
	assert.InDelta(t, 42.7, entries[1].Start, 1e-9)
}

func TestProvider_ErrorClasses(t *testing.T) {
	tests := []struct {
		name   string
		handle func(w http.ResponseWriter, r *http.Request)
		class  keypool.Class
		target error
	}{
		{"too many requests", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, keypool.ClassTransport, ErrRequestBlocked},
		{"captcha", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<div class="g-recaptcha"></div>`))
		}, keypool.ClassTransport, ErrRequestBlocked},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, keypool.ClassTransport, keypool.ErrTransport},
		{"no captions", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"}};`))
		}, keypool.ClassFatal, ErrTranscriptsDisabled},
		{"unplayable", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`var ytInitialPlayerResponse = {"playabilityStatus":{"status":"ERROR","reason":"Video unavailable"}};`))
		}, keypool.ClassFatal, ErrVideoUnavailable},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, keypool.ClassFatal, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.handle)
			provider := NewProvider(Config{BaseURL: srv.URL})

			_, err := provider.ListTranscripts(context.Background(), keypool.DirectProxy, "vid")
			require.Error(t, err)
			assert.Equal(t, tt.class, keypool.Classify(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestProvider_InvalidProxyIsTransport(t *testing.T) {
	provider := NewProvider(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := provider.ListTranscripts(context.Background(), "not a proxy", "vid")
	assert.ErrorIs(t, err, keypool.ErrTransport)
}

func TestProvider_ReusesClientPerProxy(t *testing.T) {
	provider := NewProvider(Config{})

	a, err := provider.clientFor("http://10.0.0.1:8080")
	require.NoError(t, err)
	b, err := provider.clientFor("http://10.0.0.1:8080")
	require.NoError(t, err)
	c, err := provider.clientFor(keypool.DirectProxy)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestExtractJSONObject(t *testing.T) {
	raw, ok := extractJSONObject(`x = {"a":"}{\"","b":{"c":1}};rest}`, "x = ")
	require.True(t, ok)
	assert.Equal(t, `{"a":"}{\"","b":{"c":1}}`, raw)

	_, ok = extractJSONObject(`x = {"open":`, "x = ")
	assert.False(t, ok)
	_, ok = extractJSONObject(`nothing`, "x = ")
	assert.False(t, ok)
}

func TestParseTimedText_SkipsInvalidStart(t *testing.T) {
	body := []byte(`<transcript>
<text start="abc" dur="1">hola</text>
<text dur="1">hola otra vez</text>
<text start="3.5" dur="x">hola de nuevo</text>
<text start="8" dur="2">adiós</text>
</transcript>`)

	entries, err := parseTimedText(body)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "hola de nuevo", entries[0].Text)
	assert.Equal(t, 3.5, entries[0].Start)
	assert.Zero(t, entries[0].Duration)
	assert.Equal(t, 8.0, entries[1].Start)
}
