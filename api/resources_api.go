package api

import (
	"context"
	"net/http"
)

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// PointsAPI wraps the points wallet endpoints.
type PointsAPI struct {
	client *Client
}

func NewPointsAPI(c *Client) PointsAPI {
	return PointsAPI{client: c}
}

func (p PointsAPI) Balance(ctx context.Context, accessToken string) (*Response, error) {
	return p.client.Call(ctx, PointsBalanceRoute, CallOptions{BearerToken: accessToken})
}

func (p PointsAPI) Charge(ctx context.Context, amount float64, accessToken string) (*Response, error) {
	return p.client.Call(ctx, PointsChargeRoute, CallOptions{Method: http.MethodPost, Body: amountRequest{amount}, BearerToken: accessToken})
}

func (p PointsAPI) Pay(ctx context.Context, amount float64, accessToken string) (*Response, error) {
	return p.client.Call(ctx, PointsPayRoute, CallOptions{Method: http.MethodPost, Body: amountRequest{amount}, BearerToken: accessToken})
}

type PaymentsAPI struct {
	client *Client
}

func NewPaymentsAPI(c *Client) PaymentsAPI {
	return PaymentsAPI{client: c}
}

func (p PaymentsAPI) TossAutopay(ctx context.Context, accessToken string) (*Response, error) {
	return p.client.Call(ctx, TossAutopayRoute, CallOptions{BearerToken: accessToken})
}

// DevicesAPI wraps device binding endpoints. Device bodies are open objects.
type DevicesAPI struct {
	client *Client
}

func NewDevicesAPI(c *Client) DevicesAPI {
	return DevicesAPI{client: c}
}

func (d DevicesAPI) List(ctx context.Context, userID, accessToken string) (*Response, error) {
	return d.client.Call(ctx, UserDevicesRoute(userID), CallOptions{BearerToken: accessToken})
}

func (d DevicesAPI) Get(ctx context.Context, id, accessToken string) (*Response, error) {
	return d.client.Call(ctx, DeviceRoute(id), CallOptions{BearerToken: accessToken})
}

func (d DevicesAPI) Register(ctx context.Context, payload map[string]any, accessToken string) (*Response, error) {
	return d.client.Call(ctx, DevicesRoute, CallOptions{Method: http.MethodPost, Body: payload, BearerToken: accessToken})
}

func (d DevicesAPI) Remove(ctx context.Context, id, accessToken string) (*Response, error) {
	return d.client.Call(ctx, DeviceRoute(id), CallOptions{Method: http.MethodDelete, BearerToken: accessToken})
}

// CreateUserRequest is the admin create-user body. Optional fields are
// omitted when empty.
type CreateUserRequest struct {
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Name        string   `json:"name,omitempty"`
	PhoneNumber string   `json:"phoneNumber,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type AdminAPI struct {
	client *Client
}

func NewAdminAPI(c *Client) AdminAPI {
	return AdminAPI{client: c}
}

func (a AdminAPI) ListUsers(ctx context.Context, accessToken string) (*Response, error) {
	return a.client.Call(ctx, AdminUsersRoute, CallOptions{BearerToken: accessToken})
}

func (a AdminAPI) CreateUser(ctx context.Context, req CreateUserRequest, accessToken string) (*Response, error) {
	return a.client.Call(ctx, AdminUsersRoute, CallOptions{Method: http.MethodPost, Body: req, BearerToken: accessToken})
}

func (a AdminAPI) UpdateStatus(ctx context.Context, id, status, accessToken string) (*Response, error) {
	return a.client.Call(ctx, AdminUserStatusRoute(id), CallOptions{Method: http.MethodPatch, Body: statusRequest{status}, BearerToken: accessToken})
}
