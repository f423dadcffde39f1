package devices

import (
	"context"
	"encoding/json"
	"slices"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/rs/zerolog/log"
)

type TokenProvider interface {
	AccessToken() (string, error)
}

// RegisterRequest is the device registration form. Metadata, when set, must
// be a JSON object; its fields are merged into the request body.
type RegisterRequest struct {
	IdentifierType string // One of IdentifierTypes
	Value          string
	Metadata       string
}

// Service manages the devices bound to an account.
type Service struct {
	api     api.DevicesAPI
	tokens  TokenProvider
	lenient bool
}

type Option func(*Service)

// WithLenientLists accepts the legacy list envelopes as well as a bare array.
func WithLenientLists(lenient bool) Option {
	return func(s *Service) {
		s.lenient = lenient
	}
}

func NewService(devicesAPI api.DevicesAPI, tokens TokenProvider, opts ...Option) *Service {
	s := &Service{api: devicesAPI, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the devices bound to userID.
func (s *Service) List(ctx context.Context, userID string) ([]Device, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.Validation("userId", "is required to list devices")
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.List(ctx, userID, token)
	if err != nil {
		return nil, errors.Wrapf(err, "list devices")
	}
	return DecodeList(resp, s.lenient)
}

func (s *Service) Get(ctx context.Context, id string) (Device, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.ErrMissingID
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Get(ctx, id, token)
	if err != nil {
		return nil, errors.Wrapf(err, "get device %s", id)
	}
	obj, ok := resp.Object()
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnexpectedShape, "device %s", id)
	}
	return Device(obj), nil
}

// BuildPayload validates the form and returns the request body. Metadata
// fields are applied after the identifier.
func BuildPayload(req RegisterRequest) (map[string]any, error) {
	if !slices.Contains(IdentifierTypes, req.IdentifierType) {
		return nil, errors.Validation("identifierType", "must be one of %s", strings.Join(IdentifierTypes, ", "))
	}
	value := strings.TrimSpace(req.Value)
	if value == "" {
		return nil, errors.Validation("value", "identifier value is required")
	}

	payload := map[string]any{req.IdentifierType: value}
	if strings.TrimSpace(req.Metadata) == "" {
		return payload, nil
	}

	var extra any
	if err := json.Unmarshal([]byte(req.Metadata), &extra); err != nil {
		return nil, errors.Validation("metadata", "must be JSON: %v", err)
	}
	fields, ok := extra.(map[string]any)
	if !ok || fields == nil {
		return nil, errors.Validation("metadata", "must be a JSON object")
	}
	for k, v := range fields {
		payload[k] = v
	}
	return payload, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*api.Response, error) {
	payload, err := BuildPayload(req)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Register(ctx, payload, token)
	if err != nil {
		return nil, errors.Wrapf(err, "register device")
	}
	log.Info().Str(req.IdentifierType, strings.TrimSpace(req.Value)).Msg("device registered")
	return resp, nil
}

// Remove deletes a device by its resolved identifier.
func (s *Service) Remove(ctx context.Context, device Device) error {
	id := device.ID()
	if id == "" {
		return errors.Wrapf(errors.ErrMissingID, "device has no id, deviceId, serialNumber or uuid")
	}
	return s.RemoveByID(ctx, id)
}

func (s *Service) RemoveByID(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.ErrMissingID
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return err
	}
	if _, err := s.api.Remove(ctx, id, token); err != nil {
		return errors.Wrapf(err, "remove device %s", id)
	}
	log.Info().Str("device", id).Msg("device removed")
	return nil
}
