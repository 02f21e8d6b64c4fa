package repository

import (
	"context"

	"vocab-bot/domain/model"
)

// IVideoSearch is the credential-bound video API client.
type IVideoSearch interface {
	// SearchVideoIDs returns one page of video ids matching query that have captions.
	SearchVideoIDs(ctx context.Context, query, pageToken string, maxResults int64) (model.SearchPage, error)
	// ListVideoMetadata fetches metadata for ids in a single call.
	ListVideoMetadata(ctx context.Context, ids []string) ([]model.VideoMetadata, error)
}
