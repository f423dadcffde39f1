package api

import (
	"fmt"
	"net/url"
)

const (
	SignupRoute          = "/api/auth/signup"
	LoginRoute           = "/api/auth/login"
	RefreshRoute         = "/api/auth/refresh"
	IdentityRoute        = "/api/identity/me"
	PointsBalanceRoute   = "/api/points/me"
	PointsChargeRoute    = "/api/points/charge"
	PointsPayRoute       = "/api/points/pay"
	TossAutopayRoute     = "/api/payments/toss/autopay"
	DevicesRoute         = "/api/devices"
	AdminUsersRoute      = "/api/admin/users"
	OAuthAuthorizeFormat = "/oauth2/authorization/%s"
)

func UserDevicesRoute(userID string) string {
	return fmt.Sprintf("/api/users/%s/device-bindings", url.PathEscape(userID))
}

func DeviceRoute(id string) string {
	return DevicesRoute + "/" + url.PathEscape(id)
}

func AdminUserStatusRoute(id string) string {
	return fmt.Sprintf("%s/%s/status", AdminUsersRoute, url.PathEscape(id))
}

func OAuthAuthorizeRoute(provider string) string {
	return fmt.Sprintf(OAuthAuthorizeFormat, url.PathEscape(provider))
}
