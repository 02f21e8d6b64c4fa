package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
	"vocab-bot/infrastructure/logger"
)

const (
	// maxPageSize is the provider's upper bound for one search page.
	maxPageSize = 50
	// musicCategoryID is the provider category code for music.
	musicCategoryID = "10"
	minDuration     = 60 * time.Second
)

// musicMarkers flag videos whose speech is mostly sung.
var musicMarkers = []string{"music video", "lyrics", "feat", "official video", "audio"}

// IVideoFinder finds a video where a word is spoken.
type IVideoFinder interface {
	Search(ctx context.Context, word string, seen model.SeenSet, maxResults int) ([]model.Candidate, error)
	FetchTranscripts(ctx context.Context, videoID, lang string) ([]repository.Transcript, error)
	GetLink(ctx context.Context, videoID, word, lang string) (string, error)
	Resolve(ctx context.Context, word, lang string, seen model.SeenSet, maxResults int) (string, error)
}

type VideoFinderConfig struct {
	MaxPages           int
	SearchCost         int64
	MaxBackoffAttempts int
}

type VideoFinder struct {
	search      *keypool.Executor[repository.IVideoSearch]
	proxies     *keypool.ProxyExecutor
	transcripts repository.ITranscriptProvider
	cfg         VideoFinderConfig
}

func NewVideoFinder(
	search *keypool.Executor[repository.IVideoSearch],
	proxies *keypool.ProxyExecutor,
	transcripts repository.ITranscriptProvider,
	cfg VideoFinderConfig,
) IVideoFinder {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if cfg.SearchCost <= 0 {
		cfg.SearchCost = 100
	}
	if cfg.MaxBackoffAttempts <= 0 {
		cfg.MaxBackoffAttempts = keypool.DefaultMaxBackoffAttempts
	}
	return &VideoFinder{search: search, proxies: proxies, transcripts: transcripts, cfg: cfg}
}

// searchState carries pagination between fetchPage calls.
type searchState struct {
	query string
	token string
	page  int
	done  bool
}

// fetchPage requests up to size ids and returns the state for the next page.
func (f *VideoFinder) fetchPage(ctx context.Context, state searchState, size int) ([]string, searchState, error) {
	page, err := keypool.ExecuteWithBackoff(ctx, f.search, func(ctx context.Context, client repository.IVideoSearch) (model.SearchPage, error) {
		return client.SearchVideoIDs(ctx, state.query, state.token, int64(size))
	}, keypool.FixedCost[model.SearchPage](f.cfg.SearchCost), f.cfg.MaxBackoffAttempts)
	if err != nil {
		return nil, state, fmt.Errorf("search page %d: %w", state.page+1, err)
	}

	next := searchState{query: state.query, token: page.NextPageToken, page: state.page + 1}
	if len(page.VideoIDs) == 0 || page.NextPageToken == "" || next.page >= f.cfg.MaxPages {
		next.done = true
	}
	return page.VideoIDs, next, nil
}

// Search returns suitable candidates in provider order. Every id it sees is
// added to seen, and ids already in seen are never fetched again.
func (f *VideoFinder) Search(ctx context.Context, word string, seen model.SeenSet, maxResults int) ([]model.Candidate, error) {
	if maxResults <= 0 {
		return nil, nil
	}
	if seen == nil {
		seen = model.NewSeenSet()
	}

	var rows []model.Candidate
	state := searchState{query: word}

	for !state.done && len(rows) < maxResults {
		ids, next, err := f.fetchPage(ctx, state, min(maxPageSize, maxResults-len(rows)))
		if err != nil {
			return nil, err
		}
		state = next

		fresh := make([]string, 0, len(ids))
		for _, id := range ids {
			if seen.Has(id) {
				continue
			}
			seen.Add(id)
			fresh = append(fresh, id)
		}
		if len(fresh) == 0 {
			continue
		}

		metas, err := keypool.ExecuteWithBackoff(ctx, f.search, func(ctx context.Context, client repository.IVideoSearch) ([]model.VideoMetadata, error) {
			return client.ListVideoMetadata(ctx, fresh)
		}, keypool.CountCost[model.VideoMetadata](), f.cfg.MaxBackoffAttempts)
		if err != nil {
			return nil, fmt.Errorf("list metadata: %w", err)
		}

		for _, meta := range metas {
			if reason := RejectReason(meta); reason != "" {
				logger.GetLogger().WithFields(map[string]interface{}{
					"video_id": meta.ID,
					"reason":   reason,
				}).Debug("Candidate rejected")
				continue
			}
			rows = append(rows, model.Candidate{VideoID: meta.ID, Title: meta.Title})
			if len(rows) >= maxResults {
				break
			}
		}
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"word":       word,
		"candidates": len(rows),
		"pages":      state.page,
		"seen":       len(seen),
	}).Info("Video search finished")

	return rows, nil
}

// RejectReason names the first suitability rule meta breaks, or "" when the
// video is usable.
func RejectReason(meta model.VideoMetadata) string {
	switch {
	case meta.LiveBroadcastContent == "live" || meta.LiveBroadcastContent == "upcoming":
		return "live"
	case meta.CategoryID == musicCategoryID:
		return "music category"
	case meta.Duration < minDuration:
		return "too short"
	}

	title := strings.ToLower(meta.Title)
	description := strings.ToLower(meta.Description)
	for _, marker := range musicMarkers {
		if strings.Contains(title, marker) || strings.Contains(description, marker) {
			return "music marker " + marker
		}
	}
	return ""
}

// IsSuitable reports whether meta passes every suitability rule.
func IsSuitable(meta model.VideoMetadata) bool {
	return RejectReason(meta) == ""
}

// FetchTranscripts lists tracks through the proxy pool and returns the
// generated then the manually created track for lang, whichever exist.
// A listing failure other than proxy exhaustion yields (nil, nil).
func (f *VideoFinder) FetchTranscripts(ctx context.Context, videoID, lang string) ([]repository.Transcript, error) {
	found, err := keypool.ExecuteWithProxy(ctx, f.proxies, func(ctx context.Context, proxy string) ([]repository.Transcript, error) {
		return f.listTranscripts(ctx, proxy, videoID, lang)
	})
	if err != nil {
		if fatalTranscriptError(ctx, err) {
			return nil, err
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"video_id": videoID,
			"error":    err,
		}).Warn("Transcript listing failed")
		return nil, nil
	}
	return found, nil
}

func (f *VideoFinder) listTranscripts(ctx context.Context, proxy, videoID, lang string) ([]repository.Transcript, error) {
	list, err := f.transcripts.ListTranscripts(ctx, proxy, videoID)
	if err != nil {
		return nil, err
	}

	lookups := []func(...string) (repository.Transcript, error){
		list.FindGeneratedTranscript,
		list.FindManuallyCreatedTranscript,
	}

	var found []repository.Transcript
	for _, lookup := range lookups {
		t, err := lookup(lang)
		if err != nil {
			continue
		}
		found = append(found, t)
	}
	return found, nil
}

// fatalTranscriptError reports errors that must abort the resolve instead of
// skipping the candidate.
func fatalTranscriptError(ctx context.Context, err error) bool {
	return errors.Is(err, keypool.ErrProxiesExhausted) ||
		errors.Is(err, keypool.ErrDirectRouteFailed) ||
		ctx.Err() != nil
}

// GetLink returns a timestamped link to the first caption line of videoID
// containing word, or "" when there is none. Listing and fetching share one
// proxy; a transport failure in either rotates to the next proxy.
func (f *VideoFinder) GetLink(ctx context.Context, videoID, word, lang string) (string, error) {
	entries, err := keypool.ExecuteWithProxy(ctx, f.proxies, func(ctx context.Context, proxy string) ([]model.TranscriptEntry, error) {
		transcripts, err := f.listTranscripts(ctx, proxy, videoID, lang)
		if err != nil || len(transcripts) == 0 {
			return nil, err
		}

		transcript := transcripts[0]
		if transcript.LanguageCode() != lang {
			return nil, nil
		}
		return transcript.Fetch(ctx)
	})
	if err != nil {
		if fatalTranscriptError(ctx, err) {
			return "", err
		}
		logger.GetLogger().WithFields(map[string]interface{}{
			"video_id": videoID,
			"error":    err,
		}).Warn("Transcript unavailable")
		return "", nil
	}

	needle := strings.ToLower(word)
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Text), needle) {
			return BuildLink(videoID, entry.Start), nil
		}
	}
	return "", nil
}

// BuildLink renders a short video link starting at the whole second of start.
func BuildLink(videoID string, start float64) string {
	return fmt.Sprintf("https://youtu.be/%s?t=%d", videoID, int64(math.Floor(start)))
}

// Resolve searches and then tries candidates in order; the first link wins.
// "" with a nil error means no candidate contains the word.
func (f *VideoFinder) Resolve(ctx context.Context, word, lang string, seen model.SeenSet, maxResults int) (string, error) {
	candidates, err := f.Search(ctx, word, seen, maxResults)
	if err != nil {
		return "", err
	}

	for _, c := range candidates {
		link, err := f.GetLink(ctx, c.VideoID, word, lang)
		if err != nil {
			return "", fmt.Errorf("transcript for %s: %w", c.VideoID, err)
		}
		if link != "" {
			logger.GetLogger().WithFields(map[string]interface{}{
				"word":     word,
				"lang":     lang,
				"video_id": c.VideoID,
				"link":     link,
			}).Info("Word found in video")
			return link, nil
		}
	}

	return "", nil
}
