// Package services contains server-side business logic. This file implements
// UserService: registration, login/logout, access/refresh token issuance and
// rotation, password changes and profile reads/updates.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/dbx"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/auth"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/media"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/vidtube/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MediaStore uploads staged files and deletes replaced assets.
type MediaStore interface {
	Upload(ctx context.Context, localPath string) (*media.UploadResult, error)
	Delete(ctx context.Context, assetURL string) (*media.DeleteResult, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is returned by Login.
type LoginResult struct {
	User *models.PublicUser `json:"user"`
	TokenPair
}

type RegisterInput struct {
	Fullname       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

// UserService owns the session lifecycle. Only one refresh token value is
// stored per user: presenting any other value is treated as reuse. This is
// best-effort replay detection, not a token-family design.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	media                        MediaStore
	logger                       logging.Logger
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	hashCost                     int
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, ms MediaStore, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		media:                        ms,
		logger:                       logger,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		hashCost:                     cfg.PasswordHashCost,
	}
}

// Register validates input, uploads the avatar (and optional cover image) and
// creates the user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	fullname := strings.TrimSpace(in.Fullname)
	email := normalize(in.Email)
	username := normalize(in.Username)

	if fullname == "" || email == "" || username == "" || strings.TrimSpace(in.Password) == "" {
		return nil, common.NewValidationError("all fields are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, common.NewValidationError("incorrect email")
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.FindByIdentifier(ctx, models.UserLookup{Username: username, Email: email})
	switch {
	case err == nil:
		return nil, common.NewConflictError("user with email or username already exists")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, s.internal(ctx, "something went wrong while registering the user", err)
	}

	if in.AvatarPath == "" {
		return nil, common.NewValidationError("avatar file is required")
	}

	hash, err := s.hashPassword(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	avatar, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		s.logger.Warn(ctx, "avatar upload failed", "error", err)
		return nil, common.NewValidationError("avatar file is required")
	}

	var coverImage string
	if in.CoverImagePath != "" {
		cover, err := s.media.Upload(ctx, in.CoverImagePath)
		if err != nil {
			s.logger.Warn(ctx, "cover image upload failed", "error", err)
		} else {
			coverImage = cover.SecureURL
		}
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		Avatar:       avatar.SecureURL,
		CoverImage:   coverImage,
		PasswordHash: hash,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		s.discard(ctx, avatar.SecureURL)
		s.discard(ctx, coverImage)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewConflictError("user with email or username already exists")
		}
		return nil, s.internal(ctx, "something went wrong while registering the user", err)
	}

	public, err := repo.FindPublicByID(ctx, created.ID)
	if err != nil || public == nil {
		return nil, s.internal(ctx, "something went wrong while registering the user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", public.ID, "username", public.Username)
	return public, nil
}

// Login verifies the password of the user identified by username or email and
// issues a new token pair. The stored refresh token is replaced.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	lookup := models.UserLookup{Username: normalize(in.Username), Email: normalize(in.Email)}
	if lookup.IsEmpty() {
		return nil, common.NewValidationError("username or email is required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByIdentifier(ctx, lookup)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("user does not exist")
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, s.internal(ctx, "something went wrong", err)
	}
	if !ok {
		return nil, common.NewAuthError("invalid user credentials", common.ErrorUnauthorized)
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, s.internal(ctx, "something went wrong while generating tokens", err)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, s.internal(ctx, "something went wrong while generating tokens", err)
	}

	public, err := repo.FindPublicByID(ctx, user.ID)
	if err != nil {
		return nil, s.internal(ctx, "something went wrong", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{User: public, TokenPair: *pair}, nil
}

// Logout forgets the stored refresh token. Logging out a user that no longer
// exists is not an error.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	err := s.repomanager.Users(s.db).ClearRefreshToken(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return s.internal(ctx, "something went wrong", err)
	}
	s.logger.Info(ctx, "user logged out", "user_id", userID)
	return nil
}

// RefreshAccessToken exchanges a refresh token for a new pair. The presented
// token must be the one currently stored; the swap is a compare-and-swap so
// only one of two concurrent refreshes with the same token wins.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.NewAuthError("unauthorized request", common.ErrorUnauthorized)
	}

	claims, err := auth.ParseRefreshToken(refreshToken, s.refreshSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.NewAuthError("refresh token expired", err)
		}
		return nil, common.NewAuthError("invalid refresh token", err)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewAuthError("invalid refresh token", err)
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		s.logger.Warn(ctx, "stale refresh token presented", "user_id", user.ID)
		return nil, common.NewAuthError(common.ErrRefreshTokenExpired.Error(), common.ErrRefreshTokenExpired)
	}

	pair, err := s.generateTokenPair(user)
	if err != nil {
		return nil, s.internal(ctx, "something went wrong while generating tokens", err)
	}

	swapped, err := repo.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, s.internal(ctx, "something went wrong while generating tokens", err)
	}
	if !swapped {
		s.logger.Warn(ctx, "refresh token rotation lost a race", "user_id", user.ID)
		return nil, common.NewAuthError(common.ErrRefreshTokenExpired.Error(), common.ErrRefreshTokenExpired)
	}

	return pair, nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return common.NewValidationError("new password is required")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewNotFoundError("user not found")
		}
		return s.internal(ctx, "something went wrong", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, oldPassword)
	if err != nil {
		return s.internal(ctx, "something went wrong", err)
	}
	if !ok {
		return common.NewAuthError("invalid old password", common.ErrorUnauthorized)
	}

	if err := s.updatePassword(ctx, repo, userID, newPassword); err != nil {
		return err
	}

	s.logger.Info(ctx, "password changed", "user_id", userID)
	return nil
}

// ResetPassword sets a new password for username and clears its refresh token
// in one transaction, ending all sessions.
func (s *UserService) ResetPassword(ctx context.Context, username, newPassword string) error {
	username = normalize(username)
	if username == "" || strings.TrimSpace(newPassword) == "" {
		return common.NewValidationError("username and password are required")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.FindByIdentifier(ctx, models.UserLookup{Username: username})
		if err != nil {
			return err
		}
		if err := s.updatePassword(ctx, repo, user.ID, newPassword); err != nil {
			return err
		}
		return repo.ClearRefreshToken(ctx, user.ID)
	})

	switch {
	case err == nil:
		s.logger.Info(ctx, "password reset", "username", username)
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.NewNotFoundError("user does not exist")
	default:
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return s.internal(ctx, "something went wrong", err)
	}
}

// GetCurrentUser returns the sanitized user.
func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	u, err := s.repomanager.Users(s.db).FindPublicByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("user not found")
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}
	return u, nil
}

// UpdateProfile changes fullname and email.
func (s *UserService) UpdateProfile(ctx context.Context, userID, fullname, email string) (*models.PublicUser, error) {
	fullname = strings.TrimSpace(fullname)
	email = normalize(email)

	if fullname == "" || email == "" {
		return nil, common.NewValidationError("all fields are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, common.NewValidationError("incorrect email")
	}

	if err := s.repomanager.Users(s.db).UpdateDetails(ctx, userID, fullname, email); err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.NewConflictError("email is already in use")
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.NewNotFoundError("user not found")
		default:
			return nil, s.internal(ctx, "something went wrong", err)
		}
	}

	return s.GetCurrentUser(ctx, userID)
}

// UpdateAvatar uploads a new avatar and removes the previous one.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	return s.replaceAsset(ctx, userID, localPath, "avatar",
		func(u *models.User) string { return u.Avatar },
		users.Repository.UpdateAvatar)
}

// UpdateCoverImage uploads a new cover image and removes the previous one.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error) {
	return s.replaceAsset(ctx, userID, localPath, "cover image",
		func(u *models.User) string { return u.CoverImage },
		users.Repository.UpdateCoverImage)
}

// GetChannelProfile returns the channel view of username as seen by requesterID.
func (s *UserService) GetChannelProfile(ctx context.Context, username, requesterID string) (*models.ChannelProfile, error) {
	username = normalize(username)
	if username == "" {
		return nil, common.NewValidationError("username is missing")
	}

	p, err := s.repomanager.Channels(s.db).ChannelProfile(ctx, models.ChannelProfileQuery{Username: username, RequesterID: requesterID})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("channel does not exist")
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}
	return p, nil
}

// GetWatchHistory returns the user's watched videos in order.
func (s *UserService) GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error) {
	h, err := s.repomanager.Channels(s.db).WatchHistory(ctx, models.WatchHistoryQuery{UserID: userID})
	if err != nil {
		return nil, s.internal(ctx, "something went wrong", err)
	}
	return h, nil
}

// ResolveAccessToken verifies an access token and returns the user it names.
// Every failure is an AuthError.
func (s *UserService) ResolveAccessToken(ctx context.Context, token string) (*models.PublicUser, error) {
	if token == "" {
		return nil, common.NewAuthError("unauthorized request", common.ErrorUnauthorized)
	}

	claims, err := auth.ParseAccessToken(token, s.accessSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.NewAuthError("access token expired", err)
		}
		return nil, common.NewAuthError("invalid access token", err)
	}

	u, err := s.repomanager.Users(s.db).FindPublicByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewAuthError("invalid access token", err)
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}
	return u, nil
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// updatePassword is the only place a password hash is written; it hashes
// its input exactly once.
func (s *UserService) updatePassword(ctx context.Context, repo users.Repository, userID, password string) error {
	hash, err := s.hashPassword(ctx, password)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewNotFoundError("user not found")
		}
		return s.internal(ctx, "something went wrong", err)
	}
	return nil
}

func (s *UserService) hashPassword(ctx context.Context, password string) (string, error) {
	hash, err := auth.HashPassword(password, s.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.NewValidationError("password is too long")
		}
		return "", s.internal(ctx, "something went wrong", err)
	}
	return hash, nil
}

func (s *UserService) generateTokenPair(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(auth.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Fullname: u.Fullname,
	}, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(u.ID, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// replaceAsset uploads localPath, persists its URL and only then deletes the
// old asset. The old asset is not removed before the write: when persisting
// fails the new upload is discarded and the user keeps the previous asset.
// Delete failures are logged only.
func (s *UserService) replaceAsset(ctx context.Context, userID, localPath, what string,
	current func(*models.User) string,
	persist func(users.Repository, context.Context, string, string) error,
) (*models.PublicUser, error) {
	if localPath == "" {
		return nil, common.NewValidationError(what + " file is missing")
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("user not found")
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}
	previous := current(user)

	uploaded, err := s.media.Upload(ctx, localPath)
	if err != nil {
		s.logger.Warn(ctx, what+" upload failed", "user_id", userID, "error", err)
		return nil, common.NewValidationError("error while uploading " + what)
	}

	if err := persist(repo, ctx, userID, uploaded.SecureURL); err != nil {
		s.discard(ctx, uploaded.SecureURL)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewNotFoundError("user not found")
		}
		return nil, s.internal(ctx, "something went wrong", err)
	}

	s.discard(ctx, previous)

	return s.GetCurrentUser(ctx, userID)
}

// discard deletes an asset best-effort.
func (s *UserService) discard(ctx context.Context, assetURL string) {
	if assetURL == "" {
		return
	}
	res, err := s.media.Delete(ctx, assetURL)
	if err != nil {
		s.logger.Warn(ctx, "failed to delete asset", "url", assetURL, "error", err)
		return
	}
	if res != nil && res.Result != media.ResultOK {
		s.logger.Warn(ctx, "asset was not deleted", "url", assetURL, "result", res.Result)
	}
}

func (s *UserService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.NewInternalError(msg, err)
}
