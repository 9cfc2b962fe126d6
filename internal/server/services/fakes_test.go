package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
)

// memUsers wraps the in-memory repository with failure injection.
type memUsers struct {
	*users.MemoryRepository

	findErr       error
	createErr     error
	publicErr     error
	setRefreshErr error
	assetErr      error

	mu             sync.Mutex
	passwordWrites int
}

func newMemUsers() *memUsers {
	return &memUsers{MemoryRepository: users.NewMemoryRepository()}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.MemoryRepository.Create(ctx, u)
}

func (m *memUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.MemoryRepository.FindByID(ctx, id)
}

func (m *memUsers) FindByIdentifier(ctx context.Context, l models.UserLookup) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.MemoryRepository.FindByIdentifier(ctx, l)
}

func (m *memUsers) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	if m.publicErr != nil {
		return nil, m.publicErr
	}
	return m.MemoryRepository.FindPublicByID(ctx, id)
}

func (m *memUsers) SetRefreshToken(ctx context.Context, id, token string) error {
	if m.setRefreshErr != nil {
		return m.setRefreshErr
	}
	return m.MemoryRepository.SetRefreshToken(ctx, id, token)
}

func (m *memUsers) UpdatePassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	m.passwordWrites++
	m.mu.Unlock()
	return m.MemoryRepository.UpdatePassword(ctx, id, hash)
}

func (m *memUsers) UpdateAvatar(ctx context.Context, id, url string) error {
	if m.assetErr != nil {
		return m.assetErr
	}
	return m.MemoryRepository.UpdateAvatar(ctx, id, url)
}

func (m *memUsers) get(id string) models.User {
	u, err := m.MemoryRepository.FindByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return *u
}

type fakeChannels struct {
	profile    *models.ChannelProfile
	profileErr error
	lastQuery  models.ChannelProfileQuery

	history    []models.WatchedVideo
	historyErr error
}

func (f *fakeChannels) ChannelProfile(ctx context.Context, q models.ChannelProfileQuery) (*models.ChannelProfile, error) {
	f.lastQuery = q
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeChannels) WatchHistory(ctx context.Context, q models.WatchHistoryQuery) ([]models.WatchedVideo, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type fakeMedia struct {
	mu        sync.Mutex
	n         int
	failPaths map[string]bool
	deleteErr error
	uploaded  []string
	deleted   []string
}

func newFakeMedia() *fakeMedia { return &fakeMedia{failPaths: map[string]bool{}} }

func (f *fakeMedia) Upload(ctx context.Context, localPath string) (*media.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if localPath == "" || f.failPaths[localPath] {
		return nil, errors.New("upload failed")
	}
	f.n++
	key := fmt.Sprintf("avatars/%d", f.n)
	f.uploaded = append(f.uploaded, localPath)
	return &media.UploadResult{SecureURL: "http://cdn/" + key, Key: key}, nil
}

func (f *fakeMedia) Delete(ctx context.Context, url string) (*media.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, url)
	return &media.DeleteResult{Result: media.ResultOK}, nil
}
