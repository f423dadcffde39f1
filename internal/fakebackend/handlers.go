package fakebackend

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/rs/zerolog/log"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

var socialProviders = []string{"kakao", "naver"}

type credentials struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Nickname    string   `json:"nickname"`
	BirthDate   string   `json:"birthDate"`
	Name        string   `json:"name"`
	PhoneNumber string   `json:"phoneNumber"`
	Roles       []string `json:"roles"`
}

func (b *Backend) handleSocialAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !slices.Contains(socialProviders, provider) {
		respondError(w, http.StatusNotFound, "Unknown provider")
		return
	}
	redirect, err := url.Parse(r.URL.Query().Get("redirect_uri"))
	if err != nil || !redirect.IsAbs() {
		respondError(w, http.StatusBadRequest, "redirect_uri must be an absolute URL")
		return
	}

	b.controlLock.Lock()
	reason := b.socialError
	b.controlLock.Unlock()

	q := redirect.Query()
	if reason != "" {
		q.Set("error", reason)
		redirect.RawQuery = q.Encode()
		http.Redirect(w, r, redirect.String(), http.StatusFound)
		return
	}

	email := provider + "-user@social.smartcane.local"
	u, err := b.users.GetByEmail(email)
	if errors.Is(err, errUserNotFound) {
		u, err = b.users.Create(User{Email: email, Nickname: provider + " user"}, uuid.New().String())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	access, refresh, err := b.issuePair(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	q.Set("accessToken", access)
	q.Set("refreshToken", refresh)
	redirect.RawQuery = q.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (b *Backend) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, err := b.users.Create(User{
		Email:     req.Email,
		Nickname:  req.Nickname,
		BirthDate: req.BirthDate,
	}, req.Password)
	if errors.Is(err, errEmailTaken) {
		respondError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, u.identityJSON())
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := b.users.GetByEmail(req.Email)
	if err != nil || !u.CheckPassword(req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if u.Status == StatusSuspended {
		respondError(w, http.StatusForbidden, "Account suspended")
		return
	}
	access, refresh, err := b.issuePair(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accessToken": access, "refreshToken": refresh})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	userID, ok := b.issuer.RefreshOwner(req.RefreshToken)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	u, err := b.users.GetByID(userID)
	if err != nil || u.Status == StatusSuspended {
		respondError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := b.issuer.CreateAccessToken(u)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	body := map[string]any{"accessToken": access}
	if b.rotateRefresh {
		refresh, err := b.issuer.CreateRefreshToken(u.ID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		body["refreshToken"] = refresh
	}
	respondJSON(w, http.StatusOK, body)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, userFrom(r).identityJSON())
}

func (b *Backend) handleBalance(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"balance": userFrom(r).Points})
}

func (b *Backend) handleCharge(w http.ResponseWriter, r *http.Request) {
	b.changePoints(w, r, 1)
}

func (b *Backend) handlePay(w http.ResponseWriter, r *http.Request) {
	b.changePoints(w, r, -1)
}

func (b *Backend) changePoints(w http.ResponseWriter, r *http.Request, sign float64) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if math.IsNaN(req.Amount) || req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}
	u, err := b.users.Update(userFrom(r).ID, func(u *User) error {
		next := u.Points + sign*req.Amount
		if next < 0 {
			return errInsufficientPoints
		}
		u.Points = next
		return nil
	})
	if errors.Is(err, errInsufficientPoints) {
		respondError(w, http.StatusBadRequest, "Insufficient points")
		return
	}
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"balance": u.Points})
}

var errInsufficientPoints = errors.New("insufficient points")

func (b *Backend) handleAutopay(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"url": b.autopayURL})
}

func (b *Backend) handleListDevices(w http.ResponseWriter, r *http.Request) {
	caller := userFrom(r)
	owner := chi.URLParam(r, "userID")
	if owner != caller.ID && !caller.IsAdmin() {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}
	respondJSON(w, http.StatusOK, b.devices.ListByUser(owner))
}

func (b *Backend) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decodeBody(w, r, &payload) {
		return
	}
	if len(payload) == 0 {
		respondError(w, http.StatusBadRequest, "Device payload is empty")
		return
	}
	respondJSON(w, http.StatusCreated, b.devices.Register(userFrom(r).ID, payload))
}

func (b *Backend) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := b.ownedDevice(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (b *Backend) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := b.ownedDevice(w, r)
	if !ok {
		return
	}
	if err := b.devices.Delete(d["id"].(string)); err != nil {
		respondError(w, http.StatusNotFound, "Device not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) ownedDevice(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	d, err := b.devices.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Device not found")
		return nil, false
	}
	caller := userFrom(r)
	if d["userId"] != caller.ID && !caller.IsAdmin() {
		respondError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return d, true
}

func (b *Backend) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list := b.users.List()
	rows := make([]map[string]any, 0, len(list))
	for _, u := range list {
		rows = append(rows, u.adminJSON())
	}
	respondJSON(w, http.StatusOK, rows)
}

func (b *Backend) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, err := b.users.Create(User{
		Email:       req.Email,
		Nickname:    nicknameFromEmail(req.Email),
		Name:        req.Name,
		PhoneNumber: req.PhoneNumber,
		Roles:       normalizeRoles(req.Roles),
	}, req.Password)
	if errors.Is(err, errEmailTaken) {
		respondError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, u.adminJSON())
}

func (b *Backend) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	status := strings.ToUpper(strings.TrimSpace(req.Status))
	if status != StatusActive && status != StatusSuspended {
		respondError(w, http.StatusBadRequest, "Status must be ACTIVE or SUSPENDED")
		return
	}
	u, err := b.users.Update(chi.URLParam(r, "id"), func(u *User) error {
		u.Status = status
		return nil
	})
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	if status == StatusSuspended {
		b.issuer.RevokeUser(u.ID)
	}
	log.Debug().Str("user", u.ID).Str("status", status).Msg("account status changed")
	respondJSON(w, http.StatusOK, map[string]any{"id": u.ID, "status": u.Status})
}

// bearerMiddleware resolves the calling account from the access token.
func (b *Backend) bearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			respondError(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}
		claims, err := b.issuer.Verify(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		u, err := b.users.GetByID(claims.Subject)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "Unknown account")
			return
		}
		if u.Status == StatusSuspended {
			respondError(w, http.StatusForbidden, "Account suspended")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUser, u)))
	})
}

func (b *Backend) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !userFrom(r).IsAdmin() {
			respondError(w, http.StatusForbidden, "Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) issuePair(u *User) (string, string, error) {
	access, err := b.issuer.CreateAccessToken(u)
	if err != nil {
		return "", "", err
	}
	refresh, err := b.issuer.CreateRefreshToken(u.ID)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func userFrom(r *http.Request) *User {
	u, _ := r.Context().Value(ctxKeyUser).(*User)
	return u
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed JSON body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("fake backend failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

func normalizeRoles(raw []string) identity.Roles {
	roles := identity.NewRoles(raw...)
	if len(roles) == 0 {
		return identity.NewRoles(identity.RoleUser)
	}
	return roles
}

func nicknameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
