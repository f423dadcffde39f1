package payments

import (
	"context"
	"net/url"
	"strings"

	"github.com/jrsteele09/smartcane-client/api"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/internal/utils"
)

type TokenProvider interface {
	AccessToken() (string, error)
}

// Service starts third-party payment flows. Only the redirect URL is handled
// here; the provider does the rest.
type Service struct {
	api    api.PaymentsAPI
	tokens TokenProvider
}

func NewService(paymentsAPI api.PaymentsAPI, tokens TokenProvider) *Service {
	return &Service{api: paymentsAPI, tokens: tokens}
}

// AutopayURL returns where to send the user to register Toss autopay. The
// server answers with {url}, {redirectUrl}, a JSON string or plain text.
func (s *Service) AutopayURL(ctx context.Context) (string, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return "", err
	}
	resp, err := s.api.TossAutopay(ctx, token)
	if err != nil {
		return "", errors.Wrapf(err, "request autopay url")
	}

	var redirect string
	switch v := resp.JSON.(type) {
	case map[string]any:
		redirect = utils.FirstString(v, "url", "redirectUrl")
	case string:
		redirect = v
	case nil:
		if !resp.IsJSON {
			redirect = resp.Text()
		}
	}
	redirect = strings.TrimSpace(redirect)
	if redirect == "" {
		return "", errors.Wrapf(errors.ErrUnexpectedShape, "autopay response has no url")
	}
	if u, err := url.Parse(redirect); err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.Wrapf(errors.ErrUnexpectedShape, "autopay url %q", redirect)
	}
	return redirect, nil
}
