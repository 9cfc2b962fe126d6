package users

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// MemoryRepository is a process-local Repository with the same uniqueness
// and not-found semantics as the PostgreSQL one. Used by tests and local runs.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	history map[string][]string
	seq     int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: map[string]*models.User{}, history: map[string][]string{}}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, common.ErrorAlreadyExists
		}
	}

	r.seq++
	now := time.Now().UTC()
	user.ID = "user-" + strconv.Itoa(r.seq)
	user.CreatedAt, user.UpdatedAt = now, now

	cp := *user
	r.byID[cp.ID] = &cp
	return user, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) FindPublicByID(ctx context.Context, id string) (*models.PublicUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	p := u.Public()
	p.WatchHistory = append(p.WatchHistory, r.history[id]...)
	return p, nil
}

func (r *MemoryRepository) FindByIdentifier(ctx context.Context, lookup models.UserLookup) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if (lookup.Username != "" && u.Username == lookup.Username) || (lookup.Email != "" && u.Email == lookup.Email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *MemoryRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	return r.update(id, func(u *models.User) { u.RefreshToken = token })
}

func (r *MemoryRepository) ClearRefreshToken(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.RefreshToken = "" })
}

func (r *MemoryRepository) RotateRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || u.RefreshToken == "" || u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = next
	return true, nil
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = passwordHash; u.UpdatedAt = time.Now().UTC() })
}

func (r *MemoryRepository) UpdateDetails(ctx context.Context, id, fullname, email string) error {
	r.mu.Lock()
	for _, u := range r.byID {
		if u.ID != id && u.Email == email {
			r.mu.Unlock()
			return common.ErrorAlreadyExists
		}
	}
	r.mu.Unlock()

	return r.update(id, func(u *models.User) { u.Fullname, u.Email = fullname, email; u.UpdatedAt = time.Now().UTC() })
}

func (r *MemoryRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	return r.update(id, func(u *models.User) { u.Avatar = url; u.UpdatedAt = time.Now().UTC() })
}

func (r *MemoryRepository) UpdateCoverImage(ctx context.Context, id, url string) error {
	return r.update(id, func(u *models.User) { u.CoverImage = url; u.UpdatedAt = time.Now().UTC() })
}

// SetWatchHistory replaces the ordered watch history of id.
func (r *MemoryRepository) SetWatchHistory(id string, videoIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[id] = append([]string(nil), videoIDs...)
}

func (r *MemoryRepository) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}
