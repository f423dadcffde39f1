package points

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// TokenProvider hands out the current access token.
type TokenProvider interface {
	AccessToken() (string, error)
}

// ParseAmount accepts a finite number greater than zero.
func ParseAmount(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Validation("amount", "%q is not a number", raw)
	}
	return amount, validateAmount(amount)
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return errors.Validation("amount", "must be a finite number")
	}
	if amount <= 0 {
		return errors.Validation("amount", "must be greater than zero")
	}
	return nil
}

// Service is the points wallet.
type Service struct {
	api    api.PointsAPI
	tokens TokenProvider
}

func NewService(pointsAPI api.PointsAPI, tokens TokenProvider) *Service {
	return &Service{api: pointsAPI, tokens: tokens}
}

// Balance fetches the wallet balance.
func (s *Service) Balance(ctx context.Context) (Balance, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return Balance{}, err
	}
	resp, err := s.api.Balance(ctx, token)
	if err != nil {
		return Balance{}, errors.Wrapf(err, "fetch balance")
	}
	return balanceFrom(resp), nil
}

// Charge adds amount to the wallet. Invalid amounts never reach the server.
func (s *Service) Charge(ctx context.Context, amount float64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return err
	}
	if _, err := s.api.Charge(ctx, amount, token); err != nil {
		return errors.Wrapf(err, "charge %s P", FormatAmount(amount))
	}
	log.Info().Float64("amount", amount).Msg("points charged")
	return nil
}

// Pay spends amount from the wallet. The server rejects overdrafts.
func (s *Service) Pay(ctx context.Context, amount float64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	token, err := s.tokens.AccessToken()
	if err != nil {
		return err
	}
	if _, err := s.api.Pay(ctx, amount, token); err != nil {
		return errors.Wrapf(err, "pay %s P", FormatAmount(amount))
	}
	log.Info().Float64("amount", amount).Msg("points paid")
	return nil
}
