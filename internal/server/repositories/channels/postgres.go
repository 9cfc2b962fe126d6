package channels

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ChannelProfile(ctx context.Context, q models.ChannelProfileQuery) (*models.ChannelProfile, error) {
	query :=
		`SELECT u.id, u.username, u.fullname, u.email, u.avatar, u.cover_image,
		        (SELECT count(*) FROM subscriptions s WHERE s.channel_id = u.id),
		        (SELECT count(*) FROM subscriptions s WHERE s.subscriber_id = u.id),
		        EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id::text = $2)
		 FROM users u
		 WHERE u.username = $1
		 `

	p := &models.ChannelProfile{}
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(q.Username), q.RequesterID).Scan(
		&p.ID, &p.Username, &p.Fullname, &p.Email, &p.Avatar, &p.CoverImage,
		&p.SubscriberCount, &p.SubscribedToCount, &p.IsSubscribed)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) WatchHistory(ctx context.Context, q models.WatchHistoryQuery) ([]models.WatchedVideo, error) {
	query :=
		`SELECT v.id, v.title, v.description, v.video_file, v.thumbnail, v.duration, v.views, v.created_at,
		        o.id, o.username, o.fullname, o.avatar
		 FROM watch_history w
		 JOIN videos v ON v.id = w.video_id
		 JOIN users o ON o.id = v.owner_id
		 WHERE w.user_id = $1
		 ORDER BY w.position
		 `

	rows, err := r.db.QueryContext(ctx, query, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.WatchedVideo{}
	for rows.Next() {
		var v models.WatchedVideo
		if err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.VideoFile, &v.Thumbnail, &v.Duration, &v.Views, &v.CreatedAt,
			&v.Owner.ID, &v.Owner.Username, &v.Owner.Fullname, &v.Owner.Avatar); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
