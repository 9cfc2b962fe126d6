package channels

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/google/go-cmp/cmp"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var profileCols = []string{"id", "username", "fullname", "email", "avatar", "cover_image", "subscribers", "subscribed_to", "is_subscribed"}

func TestChannelProfile_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)count\(\*\).*EXISTS.*FROM\s+users\s+u\s+WHERE\s+u\.username\s*=\s*\$1`).
		WithArgs("alice", "viewer-1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u-1", "alice", "Alice", "alice@x.com", "a", "", int64(2), int64(0), true))

	got, err := repo.ChannelProfile(context.Background(), models.ChannelProfileQuery{Username: "Alice", RequesterID: "viewer-1"})
	if err != nil {
		t.Fatalf("ChannelProfile error: %v", err)
	}

	want := &models.ChannelProfile{
		ID: "u-1", Username: "alice", Fullname: "Alice", Email: "alice@x.com", Avatar: "a",
		SubscriberCount: 2, SubscribedToCount: 0, IsSubscribed: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestChannelProfile_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+users\s+u`).WithArgs("ghost", "").WillReturnError(sql.ErrNoRows)

	_, err := repo.ChannelProfile(context.Background(), models.ChannelProfileQuery{Username: "ghost"})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestWatchHistory_Ordered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "title", "description", "video_file", "thumbnail", "duration", "views", "created_at",
		"owner_id", "owner_username", "owner_fullname", "owner_avatar"}

	mock.ExpectQuery(`(?s)FROM\s+watch_history\s+w.*WHERE\s+w\.user_id\s*=\s*\$1\s+ORDER\s+BY\s+w\.position$`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("v2", "Second", "", "f2", "t2", 12.5, int64(3), ts, "o1", "bob", "Bob", "b").
			AddRow("v1", "First", "", "f1", "t1", 1.0, int64(9), ts, "o2", "carol", "Carol", "c"))

	got, err := repo.WatchHistory(context.Background(), models.WatchHistoryQuery{UserID: "u-1"})
	if err != nil {
		t.Fatalf("WatchHistory error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "v2" || got[1].Owner.Username != "carol" {
		t.Fatalf("unexpected history: %+v", got)
	}
}

func TestWatchHistory_EmptyAndError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+watch_history`).WithArgs("u-1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	got, err := repo.WatchHistory(context.Background(), models.WatchHistoryQuery{UserID: "u-1"})
	if err != nil {
		t.Fatalf("WatchHistory error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}

	mock.ExpectQuery(`FROM\s+watch_history`).WithArgs("u-2").WillReturnError(errors.New("db err"))
	if _, err := repo.WatchHistory(context.Background(), models.WatchHistoryQuery{UserID: "u-2"}); err == nil {
		t.Fatal("expected error")
	}
}
