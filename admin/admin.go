package admin

import (
	"context"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/rs/zerolog/log"
)

type TokenProvider interface {
	AccessToken() (string, error)
}

// CreateUserForm is the admin "add member" form. Role defaults to USER.
type CreateUserForm struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
	Role        string
}

// Service is the admin console's user management.
type Service struct {
	api     api.AdminAPI
	tokens  TokenProvider
	lenient bool
}

type Option func(*Service)

// WithLenientLists accepts {content|users|data: [...]} as well as a bare array.
func WithLenientLists(lenient bool) Option {
	return func(s *Service) {
		s.lenient = lenient
	}
}

func NewService(adminAPI api.AdminAPI, tokens TokenProvider, opts ...Option) *Service {
	s := &Service{api: adminAPI, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListUsers(ctx context.Context) ([]AdminUser, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.ListUsers(ctx, token)
	if err != nil {
		return nil, errors.Wrapf(err, "list users")
	}

	rows, err := s.extractRows(resp)
	if err != nil {
		return nil, err
	}
	users := make([]AdminUser, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		users = append(users, Normalize(m))
	}
	return users, nil
}

func (s *Service) extractRows(resp *api.Response) ([]any, error) {
	if arr, ok := resp.Array(); ok {
		return arr, nil
	}
	if !s.lenient {
		return nil, errors.Wrapf(errors.ErrUnexpectedShape, "user list is not an array")
	}
	if obj, ok := resp.Object(); ok {
		for _, key := range []string{"content", "users", "data"} {
			if arr, ok := obj[key].([]any); ok {
				return arr, nil
			}
		}
	}
	return []any{}, nil
}

// Stats lists the users and summarizes them.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(users), nil
}

func (s *Service) CreateUser(ctx context.Context, form CreateUserForm) error {
	email := strings.TrimSpace(form.Email)
	if email == "" {
		return errors.Validation("email", "is required")
	}
	if form.Password == "" {
		return errors.Validation("password", "is required")
	}
	role := strings.ToUpper(strings.TrimSpace(form.Role))
	if role == "" {
		role = "USER"
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return err
	}
	_, err = s.api.CreateUser(ctx, api.CreateUserRequest{
		Email:       email,
		Password:    form.Password,
		Name:        strings.TrimSpace(form.Name),
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Roles:       []string{role},
	}, token)
	if err != nil {
		return errors.Wrapf(err, "create user %s", email)
	}
	log.Info().Str("email", email).Str("role", role).Msg("user created")
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.ErrMissingID
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		return errors.Validation("status", "is required")
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return err
	}
	if _, err := s.api.UpdateStatus(ctx, id, status, token); err != nil {
		return errors.Wrapf(err, "update status of %s", id)
	}
	log.Info().Str("user", id).Str("status", status).Msg("user status updated")
	return nil
}

// ToggleStatus flips a user between ACTIVE and SUSPENDED and returns the new
// status. Users without id, userId or email cannot be changed.
func (s *Service) ToggleStatus(ctx context.Context, user AdminUser) (string, error) {
	key := StatusKey(user.Raw)
	if key == "" {
		return "", errors.Wrapf(errors.ErrMissingID, "user has no id, userId or email")
	}
	next := user.NextStatus()
	if err := s.UpdateStatus(ctx, key, next); err != nil {
		return "", err
	}
	return next, nil
}

// FindUser matches a user by id, userId or email.
func FindUser(users []AdminUser, key string) (AdminUser, bool) {
	for _, u := range users {
		if u.ID == key || StatusKey(u.Raw) == key || strings.EqualFold(u.Email, key) {
			return u, true
		}
	}
	return AdminUser{}, false
}
