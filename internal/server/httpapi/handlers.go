package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
	"github.com/dmitrijs2005/vidtube/internal/server/config"
	"github.com/dmitrijs2005/vidtube/internal/server/models"
	"github.com/dmitrijs2005/vidtube/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// UserService is what the handlers need from services.UserService.
type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.PublicUser, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Logout(ctx context.Context, userID string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	GetCurrentUser(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateProfile(ctx context.Context, userID, fullname, email string) (*models.PublicUser, error)
	UpdateAvatar(ctx context.Context, userID, localPath string) (*models.PublicUser, error)
	UpdateCoverImage(ctx context.Context, userID, localPath string) (*models.PublicUser, error)
	GetChannelProfile(ctx context.Context, username, requesterID string) (*models.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, userID string) ([]models.WatchedVideo, error)
	ResolveAccessToken(ctx context.Context, token string) (*models.PublicUser, error)
}

type Handler struct {
	users   UserService
	cookies cookieSettings
	tempDir string
	logger  logging.Logger
}

func NewHandler(us UserService, cfg *config.Config, tempDir string, l logging.Logger) *Handler {
	return &Handler{
		users:   us,
		cookies: newCookieSettings(cfg),
		tempDir: tempDir,
		logger:  l.With("module", "http_api"),
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(r.Context(), w, h.logger, err)
}

// withStaging parses a (multipart) body, stages the named file fields and
// always removes the staged copies afterwards.
func (h *Handler) withStaging(w http.ResponseWriter, r *http.Request, fields []string,
	fn func(f form, files map[string]string) error,
) {
	f, err := parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st := &staged{dir: h.tempDir}
	defer func() {
		for _, err := range st.cleanup(r) {
			h.logger.Warn(r.Context(), "failed to remove staged file", "error", err)
		}
	}()

	files := make(map[string]string, len(fields))
	for _, name := range fields {
		path, err := st.file(r, name)
		if err != nil {
			h.fail(w, r, common.NewInternalError("failed to stage upload", err))
			return
		}
		files[name] = path
	}

	if err := fn(f, files); err != nil {
		h.fail(w, r, err)
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	h.withStaging(w, r, []string{"avatar", "coverImage"}, func(f form, files map[string]string) error {
		u, err := h.users.Register(r.Context(), services.RegisterInput{
			Fullname:       f.get("fullname"),
			Email:          f.get("email"),
			Username:       f.get("username"),
			Password:       f.get("password"),
			AvatarPath:     files["avatar"],
			CoverImagePath: files["coverImage"],
		})
		if err != nil {
			return err
		}
		respond(w, http.StatusCreated, u, "user registered successfully")
		return nil
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), services.LoginInput{
		Username: f.get("username"),
		Email:    f.get("email"),
		Password: f.get("password"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.setTokens(w, res.TokenPair)
	respond(w, http.StatusOK, res, "user logged in successfully")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	if err := h.users.Logout(r.Context(), u.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.clearTokens(w)
	respond(w, http.StatusOK, struct{}{}, "user logged out successfully")
}

func (h *Handler) refreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(common.RefreshTokenCookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		f, err := parseForm(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		token = f.get("refreshToken")
	}

	pair, err := h.users.RefreshAccessToken(r.Context(), token)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.cookies.setTokens(w, *pair)
	respond(w, http.StatusOK, pair, "access token refreshed")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, _ := UserFromContext(r.Context())
	if err := h.users.ChangePassword(r.Context(), u.ID, f.get("oldPassword"), f.get("newPassword")); err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, http.StatusOK, struct{}{}, "password changed successfully")
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	respond(w, http.StatusOK, u, "current user fetched successfully")
}

func (h *Handler) updateDetails(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, _ := UserFromContext(r.Context())
	updated, err := h.users.UpdateProfile(r.Context(), u.ID, f.get("fullname"), f.get("email"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, http.StatusOK, updated, "account details updated successfully")
}

func (h *Handler) updateAvatar(w http.ResponseWriter, r *http.Request) {
	h.withStaging(w, r, []string{"avatar"}, func(_ form, files map[string]string) error {
		u, _ := UserFromContext(r.Context())
		updated, err := h.users.UpdateAvatar(r.Context(), u.ID, files["avatar"])
		if err != nil {
			return err
		}
		respond(w, http.StatusOK, updated, "avatar updated successfully")
		return nil
	})
}

func (h *Handler) updateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.withStaging(w, r, []string{"coverImage"}, func(_ form, files map[string]string) error {
		u, _ := UserFromContext(r.Context())
		updated, err := h.users.UpdateCoverImage(r.Context(), u.ID, files["coverImage"])
		if err != nil {
			return err
		}
		respond(w, http.StatusOK, updated, "cover image updated successfully")
		return nil
	})
}

func (h *Handler) channelProfile(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	p, err := h.users.GetChannelProfile(r.Context(), chi.URLParam(r, "username"), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, http.StatusOK, p, "user channel fetched successfully")
}

func (h *Handler) watchHistory(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	history, err := h.users.GetWatchHistory(r.Context(), u.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respond(w, http.StatusOK, history, "watch history fetched successfully")
}
