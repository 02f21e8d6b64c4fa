package repository

import (
	"context"
	"errors"

	"vocab-bot/domain/model"
)

// ErrTranscriptNotFound is returned by a lookup that has no matching track.
var ErrTranscriptNotFound = errors.New("transcript not found")

// ITranscriptProvider lists caption tracks of a video through a proxy.
type ITranscriptProvider interface {
	ListTranscripts(ctx context.Context, proxy, videoID string) (TranscriptList, error)
}

// TranscriptList is the set of caption tracks available for one video.
type TranscriptList interface {
	FindGeneratedTranscript(langs ...string) (Transcript, error)
	FindManuallyCreatedTranscript(langs ...string) (Transcript, error)
}

// Transcript is one caption track; entries are fetched lazily.
type Transcript interface {
	LanguageCode() string
	IsGenerated() bool
	Fetch(ctx context.Context) ([]model.TranscriptEntry, error)
}
