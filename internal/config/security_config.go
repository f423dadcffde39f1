package config

import (
	"strings"
	"time"
)

type SecurityConfig interface {
	GetMaxLoginAttempts() int
	GetLoginLockDuration() time.Duration
	GetLockCountdownInterval() time.Duration
	GetRoleMatchMode() string
}

type Security struct{}

var _ SecurityConfig = Security{}

const (
	maxLoginAttemptsEnvVar = "SMARTCANE_MAX_LOGIN_ATTEMPTS"
	loginLockEnvVar        = "SMARTCANE_LOGIN_LOCK"
	roleMatchEnvVar        = "SMARTCANE_ROLE_MATCH"

	RoleMatchSuffix = "suffix"
	RoleMatchExact  = "exact"
)

func (Security) GetMaxLoginAttempts() int {
	if n := GetInt(maxLoginAttemptsEnvVar, 5); n > 0 {
		return n
	}
	return 5
}

func (Security) GetLoginLockDuration() time.Duration {
	return GetDuration(loginLockEnvVar, 5*time.Second)
}

func (Security) GetLockCountdownInterval() time.Duration {
	return 500 * time.Millisecond
}

// GetRoleMatchMode is "suffix" (legacy, ORG_ADMIN satisfies ADMIN) unless set to "exact".
func (Security) GetRoleMatchMode() string {
	if strings.EqualFold(GetEnv(roleMatchEnvVar, RoleMatchSuffix), RoleMatchExact) {
		return RoleMatchExact
	}
	return RoleMatchSuffix
}
