// Package channels holds the read-only aggregation queries over users,
// subscriptions and watch history.
package channels

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type Repository interface {
	// ChannelProfile returns the public channel view with subscriber counts
	// and whether the requester is subscribed.
	ChannelProfile(ctx context.Context, q models.ChannelProfileQuery) (*models.ChannelProfile, error)
	// WatchHistory returns the watched videos in watch order.
	WatchHistory(ctx context.Context, q models.WatchHistoryQuery) ([]models.WatchedVideo, error)
}
