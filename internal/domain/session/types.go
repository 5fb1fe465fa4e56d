// Package session contains domain-level types for the client session core.
// It is pure and free of transport/adapter concerns.
package session

// Role represents a user's global application role.
// Keep string form for easy persistence and JSON transport.
// Valid values are defined as constants below.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleUser       Role = "USER"
)

// Status represents the lifecycle state of the session.
type Status string

const (
	// StatusInitializing is the state before the first resolution.
	// It is never re-entered once the session has resolved.
	StatusInitializing Status = "initializing"
	// StatusAuthenticated means a token was confirmed and a user is loaded.
	StatusAuthenticated Status = "authenticated"
	// StatusUnauthenticated means no valid session exists.
	StatusUnauthenticated Status = "unauthenticated"
)

// OrgRef is a lightweight reference to the organization a user belongs to.
type OrgRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProjectRole is the optional fine-grained role a user holds within a project.
// It is carried for consumers but never interpreted by the session core.
type ProjectRole struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the identity record returned by the auth API.
// The session service owns the canonical copy once fetched; subscribers
// receive read-only clones.
type User struct {
	ID           int64        `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	DisplayName  string       `json:"displayName"`
	AvatarURL    string       `json:"avatarUrl,omitempty"`
	Role         Role         `json:"role,omitempty"`
	Active       bool         `json:"isActive"`
	Organization *OrgRef      `json:"organization,omitempty"`
	ProjectRole  *ProjectRole `json:"projectRole,omitempty"`
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Organization != nil {
		org := *u.Organization
		cp.Organization = &org
	}
	if u.ProjectRole != nil {
		pr := *u.ProjectRole
		cp.ProjectRole = &pr
	}
	return &cp
}

// IsAdmin returns true for roles with administrative scope.
func (u *User) IsAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

// State is the observable session state. Exactly one instance is
// authoritative per process; subscribers receive immutable snapshots.
//
// Invariants:
//   - Status == StatusAuthenticated iff User != nil.
//   - Loading is true only while Status == StatusInitializing or while a
//     login call is in flight.
type State struct {
	Status  Status `json:"status"`
	User    *User  `json:"user"`
	Loading bool   `json:"loading"`
}

// Initial returns the state every session starts in.
func Initial() State {
	return State{Status: StatusInitializing, User: nil, Loading: true}
}

// Authenticated reports whether the state carries an authenticated user.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.User != nil
}

// Clone returns a deep copy safe to hand to subscribers.
func (s State) Clone() State {
	cp := s
	cp.User = s.User.Clone()
	return cp
}

// LoginResult is the normalized outcome of a login call.
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}
