package sessions

// State is the position of the session in the identity refresh flow.
type State int

const (
	Unauthenticated  State = iota // No access token
	FetchingIdentity              // Token present, identity being fetched
	Authenticated                 // Identity cached for the current token
	Refreshing                    // Exchanging the refresh token after an identity failure
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case FetchingIdentity:
		return "fetching_identity"
	case Authenticated:
		return "authenticated"
	case Refreshing:
		return "refreshing"
	}
	return "unknown"
}
