package domain

const (
	PathRoot       = "/"
	PathLogin      = "/login"
	PathAdminHome  = "/dashboard"
	PathClientHome = "/client"
)

// RoleHome maps a role to its landing route.
func RoleHome(r Role) string {
	if r == RoleClient {
		return PathClientHome
	}
	return PathAdminHome
}

// AuthState is the derived view of the session the shell renders from.
// It is never stored; build it with NewAuthState so the flags stay
// consistent with User.
type AuthState struct {
	User            *UserProfile `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsAdmin         bool         `json:"is_admin"`
	IsClient        bool         `json:"is_client"`
	Loading         bool         `json:"loading"`
}

// NewAuthState derives the flags from user. The profile is copied so the
// state can be handed out freely.
func NewAuthState(user *UserProfile, loading bool) AuthState {
	st := AuthState{Loading: loading}
	if user == nil {
		return st
	}
	u := *user
	st.User = &u
	st.IsAuthenticated = true
	st.IsAdmin = u.Role == RoleAdmin
	st.IsClient = u.Role == RoleClient
	return st
}

// Home returns the role home of the authenticated user, or the login path.
func (s AuthState) Home() string {
	switch {
	case s.IsClient:
		return PathClientHome
	case s.IsAuthenticated:
		return PathAdminHome
	default:
		return PathLogin
	}
}
