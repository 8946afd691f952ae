package http

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"libtrack/internal/auth"
	"libtrack/internal/entity"
	"libtrack/internal/platform/bibliocommons"
	"libtrack/internal/usecase"
)

// LibraryAuthClient verifies a library card by performing a real login
// against the catalog portal.
type LibraryAuthClient interface {
	DiscoverAccountID(ctx context.Context, barcode, pin string) (string, error)
}

type UserHandler struct {
	repo        usecase.UserRepository
	sessionRepo usecase.SessionRepository
	library     LibraryAuthClient
	secret      string
}

func NewUserHandler(repo usecase.UserRepository, sessionRepo usecase.SessionRepository, library LibraryAuthClient, secret string) *UserHandler {
	return &UserHandler{
		repo:        repo,
		sessionRepo: sessionRepo,
		library:     library,
		secret:      secret,
	}
}

type registerReq struct {
	Email          string `json:"email" validate:"required,email"`
	Username       string `json:"username" validate:"required,min=3,max=50"`
	Password       string `json:"password" validate:"required,password_strength"`
	LibraryBarcode string `json:"library_barcode" validate:"omitempty,barcode"`
	LibraryPIN     string `json:"library_pin"`
}

// @Summary Register new user
// @Description Create a new account, optionally verifying a library card
// @Tags users
// @Accept json
// @Produce json
// @Param user body registerReq true "User registration data"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/register [post]
func (h *UserHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	req.LibraryBarcode = strings.TrimSpace(req.LibraryBarcode)

	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}
	if (req.LibraryBarcode == "") != (req.LibraryPIN == "") {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Library card number and PIN must be provided together", nil)
		return
	}

	_, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err == nil {
		JSONError(w, http.StatusConflict, "ALREADY_EXISTS", "Email already exists", nil)
		return
	}
	if !errors.Is(err, usecase.ErrNotFound) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	// A card is verified by actually signing in to the portal once. The
	// numeric account id that falls out is what hold placement needs later.
	var accountID string
	if req.LibraryBarcode != "" {
		accountID, err = h.library.DiscoverAccountID(r.Context(), req.LibraryBarcode, req.LibraryPIN)
		if err != nil {
			var authErr *bibliocommons.AuthError
			if errors.As(err, &authErr) {
				JSONError(w, http.StatusBadRequest, "LIBRARY_AUTH_FAILED", "Library card number or PIN was rejected", nil)
				return
			}
			JSONError(w, http.StatusBadGateway, "LIBRARY_UNAVAILABLE", "Could not reach the library catalog", nil)
			return
		}
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	newUser := &entity.User{
		Email:            req.Email,
		Username:         req.Username,
		Password:         hashedPassword,
		Role:             "USER",
		LibraryBarcode:   req.LibraryBarcode,
		LibraryPIN:       req.LibraryPIN,
		LibraryAccountID: accountID,
	}
	if err := h.repo.Create(r.Context(), newUser); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	JSONSuccessCreated(w, map[string]any{
		"id":               newUser.ID,
		"email":            newUser.Email,
		"username":         newUser.Username,
		"role":             newUser.Role,
		"has_library_card": newUser.HasLibraryCard(),
	})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// @Summary Login user
// @Description Authenticate and create a refresh session
// @Tags users
// @Accept json
// @Produce json
// @Param login body loginReq true "Login credentials"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /users/login [post]
func (h *UserHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	user, err := h.repo.GetByEmail(r.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(user.Password, req.Password) {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
		return
	}

	const accessTokenTTL = 15 * time.Minute
	const refreshTokenTTL = 30 * 24 * time.Hour

	accessToken, err := auth.GenerateToken(h.secret, user.ID, user.Role, accessTokenTTL)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	refreshToken, tokenHash, err := newRefreshToken()
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	session := &entity.Session{
		UserID:           user.ID,
		RefreshTokenHash: tokenHash,
		UserAgent:        r.Header.Get("User-Agent"),
		IPAddress:        clientIP(r),
		ExpiresAt:        time.Now().Add(refreshTokenTTL),
	}
	if err := h.sessionRepo.Create(r.Context(), session); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	JSONSuccess(w, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    int(accessTokenTTL.Seconds()),
	}, nil)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// @Summary Refresh access token
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /users/refresh [post]
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	session, err := h.sessionRepo.GetByTokenHash(r.Context(), hashToken(req.RefreshToken))
	if err != nil {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token", nil)
		return
	}

	user, err := h.repo.GetByID(r.Context(), session.UserID)
	if err != nil {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired refresh token", nil)
		return
	}

	const accessTokenTTL = 15 * time.Minute
	accessToken, err := auth.GenerateToken(h.secret, user.ID, user.Role, accessTokenTTL)
	if err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	JSONSuccess(w, map[string]any{
		"access_token": accessToken,
		"expires_in":   int(accessTokenTTL.Seconds()),
	}, nil)
}

// @Summary Logout
// @Description Invalidate the refresh session
// @Tags users
// @Accept json
// @Success 204 "No Content"
// @Router /users/logout [post]
func (h *UserHandler) LogoutUser(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}

	if err := h.sessionRepo.DeleteByTokenHash(r.Context(), hashToken(req.RefreshToken)); err != nil && !errors.Is(err, usecase.ErrNotFound) {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	JSONSuccessNoContent(w)
}

// @Summary Get current user
// @Tags users
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /me [get]
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)
	if userID == "" {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	user, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	JSONSuccess(w, map[string]any{
		"id":               user.ID,
		"email":            user.Email,
		"username":         user.Username,
		"role":             user.Role,
		"has_library_card": user.HasLibraryCard(),
	}, nil)
}

type libraryCardReq struct {
	LibraryBarcode string `json:"library_barcode" validate:"required,barcode"`
	LibraryPIN     string `json:"library_pin" validate:"required"`
}

// @Summary Update library card
// @Description Verify and store new library credentials for the current user
// @Tags users
// @Accept json
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /me/library-card [put]
func (h *UserHandler) UpdateLibraryCard(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r)
	if userID == "" {
		JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	var req libraryCardReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	req.LibraryBarcode = strings.TrimSpace(req.LibraryBarcode)
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	accountID, err := h.library.DiscoverAccountID(r.Context(), req.LibraryBarcode, req.LibraryPIN)
	if err != nil {
		var authErr *bibliocommons.AuthError
		if errors.As(err, &authErr) {
			JSONError(w, http.StatusBadRequest, "LIBRARY_AUTH_FAILED", "Library card number or PIN was rejected", nil)
			return
		}
		JSONError(w, http.StatusBadGateway, "LIBRARY_UNAVAILABLE", "Could not reach the library catalog", nil)
		return
	}

	if err := h.repo.UpdateLibraryCredentials(r.Context(), userID, req.LibraryBarcode, req.LibraryPIN, accountID); err != nil {
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}

	JSONSuccess(w, map[string]any{"has_library_card": true}, nil)
}

func newRefreshToken() (token, tokenHash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}
