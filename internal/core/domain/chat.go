package domain

import "strings"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole maps arbitrary request input onto a known role.
// Anything that is not admin is treated as a regular user.
func NormalizeRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// AnswerRoute records which pipeline path produced an answer.
type AnswerRoute string

const (
	RouteCacheHit AnswerRoute = "cache_hit"
	RouteCasual   AnswerRoute = "casual"
	RouteUser     AnswerRoute = "user"
	RouteAdmin    AnswerRoute = "admin"
	RouteFallback AnswerRoute = "fallback"
)

// Answer is the externally visible unit of work for the chat endpoints.
// Sources is never nil so empty source sets serialize as [].
type Answer struct {
	Answer  string      `json:"answer"`
	Sources []string    `json:"sources"`
	Route   AnswerRoute `json:"-"`
}
