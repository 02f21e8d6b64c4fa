package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vocab-bot/domain/model"
	"vocab-bot/domain/repository"
	"vocab-bot/infrastructure/keypool"
	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/utils"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Client is a YouTube Data API client bound to one API key.
type Client struct {
	service *youtube.Service
}

// NewYouTubeClient creates an API-key client. Extra options are appended,
// e.g. option.WithEndpoint for a test server.
func NewYouTubeClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (repository.IVideoSearch, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
	}
	return &Client{service: service}, nil
}

// Factory returns the credential factory used by the key pool.
func Factory(ctx context.Context, opts ...option.ClientOption) func(key string) (repository.IVideoSearch, error) {
	return func(key string) (repository.IVideoSearch, error) {
		return NewYouTubeClient(ctx, key, opts...)
	}
}

// SearchVideoIDs lists captioned videos matching query by relevance.
func (c *Client) SearchVideoIDs(ctx context.Context, query, pageToken string, maxResults int64) (model.SearchPage, error) {
	call := c.service.Search.List([]string{"id"}).
		Q(query).
		Type("video").
		Order("relevance").
		VideoCaption("closedCaption").
		SafeSearch("none").
		MaxResults(maxResults)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Context(ctx).Do()
	if err != nil {
		return model.SearchPage{}, fmt.Errorf("failed to search videos: %w", classify(err))
	}

	page := model.SearchPage{NextPageToken: response.NextPageToken}
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		page.VideoIDs = append(page.VideoIDs, item.Id.VideoId)
	}
	return page, nil
}

// ListVideoMetadata fetches snippet, content details, status and statistics
// for ids in one call. Items come back in request order.
func (c *Client) ListVideoMetadata(ctx context.Context, ids []string) ([]model.VideoMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	response, err := c.service.Videos.List([]string{"snippet", "contentDetails", "status", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", classify(err))
	}

	out := make([]model.VideoMetadata, 0, len(response.Items))
	for _, video := range response.Items {
		out = append(out, convertToMetadata(video))
	}
	return out, nil
}

func convertToMetadata(video *youtube.Video) model.VideoMetadata {
	meta := model.VideoMetadata{ID: video.Id}
	if video.Snippet != nil {
		meta.Title = video.Snippet.Title
		meta.Description = video.Snippet.Description
		meta.LiveBroadcastContent = video.Snippet.LiveBroadcastContent
		meta.CategoryID = video.Snippet.CategoryId
	}
	if video.ContentDetails != nil {
		d, err := utils.ParseISODuration(video.ContentDetails.Duration)
		if err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"video_id": video.Id,
				"error":    err,
			}).Warn("Unparseable video duration")
		}
		meta.Duration = d
	}
	if video.Status != nil {
		meta.PrivacyStatus = video.Status.PrivacyStatus
	}
	if video.Statistics != nil {
		meta.ViewCount = video.Statistics.ViewCount
	}
	return meta
}

// classify tags API errors with the key pool sentinels.
func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "quotaExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%w: %w", keypool.ErrQuotaExceeded, err)
		case "rateLimitExceeded", "userRateLimitExceeded":
			return fmt.Errorf("%w: %w", keypool.ErrRateLimited, err)
		}
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", keypool.ErrRateLimited, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", keypool.ErrTransport, err)
	}
	return err
}
