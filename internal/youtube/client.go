// Package youtube fetches video metadata from the YouTube Data API v3,
// caching results in memory and in the video record store.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/metrics"
	"github.com/bsvmelo/samsung-tv-youtube-monitor/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// ErrVideoNotFound is returned when the API has no data for a video ID.
var ErrVideoNotFound = errors.New("youtube: video not found")

// Video is the metadata the monitor needs about a video.
type Video struct {
	ID          string
	Title       string
	Description string
	Channel     string
	PublishedAt string
	CategoryID  string
	Tags        []string
	Duration    string
}

// Config holds YouTube client settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
}

// Client fetches and caches video metadata. Lookup order: LRU cache, then
// the persisted video store, then the API.
type Client struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	cache   *lru.Cache[string, *Video]
	videos  storage.VideoStore
	clock   func() time.Time
	logger  zerolog.Logger
}

// NewClient creates a YouTube metadata client.
func NewClient(cfg Config, videos storage.VideoStore, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.googleapis.com/youtube/v3"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}

	cache, err := lru.New[string, *Video](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create metadata cache: %w", err)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		videos:  videos,
		clock:   time.Now,
		logger:  logger.With().Str("component", "youtube").Logger(),
	}, nil
}

// Video returns metadata for a video ID.
func (c *Client) Video(ctx context.Context, videoID string) (*Video, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}

	if video, ok := c.cache.Get(videoID); ok {
		metrics.MetadataCacheHits.Inc()
		return video, nil
	}

	if record, err := c.videos.Get(ctx, videoID); err == nil {
		metrics.MetadataCacheHits.Inc()
		video := recordToVideo(record)
		c.cache.Add(videoID, video)
		return video, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn().Err(err).Str("video_id", videoID).Msg("Video store read failed, calling API")
	}

	metrics.MetadataCacheMisses.Inc()
	c.logger.Info().Str("video_id", videoID).Msg("Fetching video metadata from YouTube API")

	video, err := c.fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	c.cache.Add(videoID, video)
	record := storage.VideoRecord{
		VideoID:       video.ID,
		Title:         video.Title,
		Description:   video.Description,
		Channel:       video.Channel,
		PublishedAt:   video.PublishedAt,
		CategoryID:    video.CategoryID,
		Tags:          video.Tags,
		Duration:      video.Duration,
		FirstDetected: c.clock(),
		Watches:       []storage.WatchRecord{},
	}
	if err := c.videos.Put(ctx, record); err != nil {
		c.logger.Warn().Err(err).Str("video_id", videoID).Msg("Failed to persist video record")
	}

	return video, nil
}

type videosResponse struct {
	Items []struct {
		Snippet struct {
			Title        string   `json:"title"`
			Description  string   `json:"description"`
			ChannelTitle string   `json:"channelTitle"`
			PublishedAt  string   `json:"publishedAt"`
			CategoryID   string   `json:"categoryId"`
			Tags         []string `json:"tags"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *Client) fetch(ctx context.Context, videoID string) (*Video, error) {
	params := url.Values{}
	params.Set("id", videoID)
	params.Set("key", c.apiKey)
	params.Set("part", "snippet,contentDetails")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/videos?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call YouTube API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("YouTube API status %d", resp.StatusCode)
	}

	var parsed videosResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode YouTube response: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}

	item := parsed.Items[0]
	return &Video{
		ID:          videoID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Channel:     item.Snippet.ChannelTitle,
		PublishedAt: item.Snippet.PublishedAt,
		CategoryID:  item.Snippet.CategoryID,
		Tags:        item.Snippet.Tags,
		Duration:    item.ContentDetails.Duration,
	}, nil
}

func recordToVideo(record *storage.VideoRecord) *Video {
	return &Video{
		ID:          record.VideoID,
		Title:       record.Title,
		Description: record.Description,
		Channel:     record.Channel,
		PublishedAt: record.PublishedAt,
		CategoryID:  record.CategoryID,
		Tags:        record.Tags,
		Duration:    record.Duration,
	}
}
