package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"

	"github.com/target/mmk-admin-console/internal/apiclient"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
)

const (
	endpointActivities       = "/api/activities"
	endpointRecentActivities = "/api/activities/recent"

	// DefaultActivityLimit is the page size of every activity query.
	DefaultActivityLimit = 10
)

// ActivityFeedOptions groups dependencies for ActivityFeed.
type ActivityFeedOptions struct {
	API    Backend      // Required: backend client
	Logger *slog.Logger // Optional: structured logger
}

// ActivityFeed reads the audit log. Only the recent feed is kept in memory;
// per-user and per-record queries are returned to the caller.
type ActivityFeed struct {
	api    Backend
	logger *slog.Logger

	mu     sync.RWMutex
	recent []entity.Activity
	err    string
}

// NewActivityFeed constructs a new ActivityFeed.
func NewActivityFeed(opts ActivityFeedOptions) *ActivityFeed {
	if opts.API == nil {
		panic("ActivityFeed requires an API backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityFeed{api: opts.API, logger: logger.With("component", "activity_feed")}
}

// Recent loads the latest entries across the console and keeps them.
func (f *ActivityFeed) Recent(ctx context.Context, limit int) ([]entity.Activity, error) {
	items, err := f.fetch(ctx, endpointRecentActivities, url.Values{}, limit, "Failed to fetch recent activities")
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.recent = items
	f.mu.Unlock()
	return slices.Clone(items), nil
}

// ByUser loads the latest entries performed by userID.
func (f *ActivityFeed) ByUser(ctx context.Context, userID int64, limit int) ([]entity.Activity, error) {
	q := url.Values{}
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return f.fetch(ctx, endpointActivities, q, limit, "Failed to fetch user activities")
}

// ByEntity loads the latest entries touching one record.
func (f *ActivityFeed) ByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]entity.Activity, error) {
	if entityType == "" {
		return nil, f.fail(ctx, apperrors.ValidationField("entity_type", "Entity type is required"), "")
	}
	q := url.Values{}
	q.Set("entity_type", entityType)
	q.Set("entity_id", strconv.FormatInt(entityID, 10))
	return f.fetch(ctx, endpointActivities, q, limit, "Failed to fetch entity activities")
}

func (f *ActivityFeed) fetch(ctx context.Context, endpoint string, q url.Values, limit int, fallback string) ([]entity.Activity, error) {
	f.clearErr()
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	q.Set("limit", strconv.Itoa(limit))

	var items entity.ActivityList
	err := f.api.Request(ctx, endpoint, apiclient.RequestOptions{Method: http.MethodGet, Query: q}, &items)
	if err != nil {
		return nil, f.fail(ctx, err, fallback)
	}
	return []entity.Activity(items), nil
}

func (f *ActivityFeed) fail(ctx context.Context, err error, fallback string) error {
	msg := apperrors.Message(err)
	if msg == "" {
		msg = fallback
	}
	f.mu.Lock()
	f.err = msg
	f.mu.Unlock()
	f.logger.WarnContext(ctx, "activity query failed", "error", err)
	return fmt.Errorf("activities: %w", err)
}

func (f *ActivityFeed) clearErr() {
	f.mu.Lock()
	f.err = ""
	f.mu.Unlock()
}

// RecentActivities returns up to DefaultActivityLimit entries of the last Recent call.
func (f *ActivityFeed) RecentActivities() []entity.Activity {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.recent[:min(len(f.recent), DefaultActivityLimit)])
}

// Err returns the message of the last failure, "" after a success.
func (f *ActivityFeed) Err() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

// Reset forgets the recent feed.
func (f *ActivityFeed) Reset() {
	f.mu.Lock()
	f.recent = nil
	f.err = ""
	f.mu.Unlock()
}
