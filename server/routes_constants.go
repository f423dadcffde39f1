package server

// Route path constants for the local callback server
const (
	RouteRoot = "/"
	// RouteAuth is where the backend sends the browser after a social login.
	RouteAuth = "/auth"
)
