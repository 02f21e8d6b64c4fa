package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/time/rate"

	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
	"vocab-bot/infrastructure/logger"
)

const (
	DefaultBaseURL = "https://www.youtube.com"
	playerMarker   = "ytInitialPlayerResponse = "
	maxBodyBytes   = 8 << 20
)

var (
	// ErrRequestBlocked means the site answered with a captcha or 429.
	ErrRequestBlocked = errors.New("request blocked")
	// ErrTranscriptsDisabled means the video exposes no caption tracks.
	ErrTranscriptsDisabled = errors.New("transcripts disabled")
	ErrVideoUnavailable    = errors.New("video unavailable")
)

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	AcceptLanguage    string
}

// Provider scrapes caption tracks from the watch page. One http.Client is
// kept per proxy address.
type Provider struct {
	baseURL        string
	timeout        time.Duration
	acceptLanguage string
	limiter        *rate.Limiter

	clients sync.Map
}

func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "en-US"
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Provider{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        cfg.Timeout,
		acceptLanguage: cfg.AcceptLanguage,
		limiter:        rate.NewLimiter(limit, 1),
	}
}

// clientFor returns the cached client for proxy. A malformed address is a
// transport failure so the proxy pool drops it.
func (p *Provider) clientFor(proxy string) (*http.Client, error) {
	if c, ok := p.clients.Load(proxy); ok {
		return c.(*http.Client), nil
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != "" && proxy != keypool.DirectProxy {
		u, err := url.Parse(proxy)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("%w: invalid proxy address", keypool.ErrTransport)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	client := &http.Client{Transport: transport, Timeout: p.timeout}
	actual, _ := p.clients.LoadOrStore(proxy, client)
	return actual.(*http.Client), nil
}

type watchParams struct {
	VideoID  string `url:"v"`
	Language string `url:"hl,omitempty"`
}

// ListTranscripts loads the watch page through proxy and returns its tracks.
func (p *Provider) ListTranscripts(ctx context.Context, proxy, videoID string) (repository.TranscriptList, error) {
	client, err := p.clientFor(proxy)
	if err != nil {
		return nil, err
	}

	values, err := query.Values(watchParams{VideoID: videoID, Language: "en"})
	if err != nil {
		return nil, fmt.Errorf("encode watch query: %w", err)
	}

	body, err := p.get(ctx, client, p.baseURL+"/watch?"+values.Encode())
	if err != nil {
		return nil, err
	}

	tracks, err := parseWatchPage(body)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", videoID, err)
	}

	list := &transcriptList{videoID: videoID}
	for _, track := range tracks {
		list.tracks = append(list.tracks, &transcript{
			provider:  p,
			client:    client,
			url:       strings.Replace(track.BaseURL, "&fmt=srv3", "", 1),
			lang:      track.LanguageCode,
			generated: track.Kind == "asr",
		})
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"video_id": videoID,
		"tracks":   len(list.tracks),
	}).Debug("Transcripts listed")
	return list, nil
}

// get performs a paced GET. Network failures, 429 and 5xx are transport
// errors; other non-200 answers are returned as plain errors.
func (p *Provider) get(ctx context.Context, client *http.Client, target string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept-Language", p.acceptLanguage)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", keypool.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %w", keypool.ErrTransport, ErrRequestBlocked)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", keypool.ErrTransport, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", keypool.ErrTransport, err)
	}
	return body, nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		Renderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

func parseWatchPage(body []byte) ([]captionTrack, error) {
	page := string(body)
	if strings.Contains(page, `class="g-recaptcha"`) {
		return nil, fmt.Errorf("%w: %w", keypool.ErrTransport, ErrRequestBlocked)
	}

	raw, ok := extractJSONObject(page, playerMarker)
	if !ok {
		return nil, ErrVideoUnavailable
	}

	var player playerResponse
	if err := json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	if s := player.PlayabilityStatus.Status; s != "" && s != "OK" {
		return nil, fmt.Errorf("%w: %s", ErrVideoUnavailable, player.PlayabilityStatus.Reason)
	}
	if player.Captions == nil || len(player.Captions.Renderer.CaptionTracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}
	return player.Captions.Renderer.CaptionTracks, nil
}

// extractJSONObject returns the balanced {...} following marker, honouring
// braces inside JSON strings.
func extractJSONObject(s, marker string) (string, bool) {
	start := strings.Index(s, marker)
	if start < 0 {
		return "", false
	}
	s = s[start+len(marker):]
	if !strings.HasPrefix(s, "{") {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

type transcriptList struct {
	videoID string
	tracks  []*transcript
}

func (l *transcriptList) find(generated bool, langs []string) (repository.Transcript, error) {
	for _, lang := range langs {
		for _, t := range l.tracks {
			if t.generated == generated && t.lang == lang {
				return t, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: video %s, languages %v", repository.ErrTranscriptNotFound, l.videoID, langs)
}

func (l *transcriptList) FindGeneratedTranscript(langs ...string) (repository.Transcript, error) {
	return l.find(true, langs)
}

func (l *transcriptList) FindManuallyCreatedTranscript(langs ...string) (repository.Transcript, error) {
	return l.find(false, langs)
}
