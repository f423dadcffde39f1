package config

import (
	"fmt"
	"strings"
)

type OAuthConfig interface {
	GetSocialProviders() []string
	GetProviderOverrideURL(provider string) string
	GetCallbackAddr() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

const callbackAddrEnvVar = "SMARTCANE_CALLBACK_ADDR"

func (OAuth) GetSocialProviders() []string {
	return []string{"kakao", "naver"}
}

// GetProviderOverrideURL returns SMARTCANE_<PROVIDER>_OAUTH_URL, which replaces
// the backend authorization URL entirely when set.
func (OAuth) GetProviderOverrideURL(provider string) string {
	return GetEnv(providerOverrideEnvVar(provider), "")
}

// GetCallbackAddr is the loopback address the social login redirect lands on.
func (OAuth) GetCallbackAddr() string {
	return GetEnv(callbackAddrEnvVar, "127.0.0.1:5173")
}

func providerOverrideEnvVar(provider string) string {
	return fmt.Sprintf("SMARTCANE_%s_OAUTH_URL", strings.ToUpper(provider))
}
