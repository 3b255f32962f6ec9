package server

import (
	"fmt"
	"net/http"
	"slices"

	"tunishield/internal/auth"
)

const RolePublic = "PUBLIC"

var signedIn = []string{auth.RoleUser, auth.RoleAdmin}

type AccessRule struct {
	Method string
	Path   string
	Roles  []string
}

// /api/auth/me and logout are public so they can answer for anonymous
// callers themselves.
var endpointAccess = []AccessRule{
	{Method: http.MethodPost, Path: "/api/auth/send-otp", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/verify-otp", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/auth/me", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/logout", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/auth/google/start", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/auth/google/callback", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/community/posts", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/community/posts/{id}/comment", Roles: []string{RolePublic}},

	{Method: http.MethodPatch, Path: "/api/auth/profile", Roles: signedIn},
	{Method: http.MethodGet, Path: "/api/auth/activity", Roles: signedIn},
	{Method: http.MethodGet, Path: "/api/quiz/attempt", Roles: signedIn},
	{Method: http.MethodPost, Path: "/api/quiz/attempt", Roles: signedIn},
	{Method: http.MethodPost, Path: "/api/community/posts", Roles: signedIn},
	{Method: http.MethodPost, Path: "/api/community/posts/{id}/like", Roles: signedIn},
	{Method: http.MethodPost, Path: "/api/community/posts/{id}/comment", Roles: signedIn},
}

func accessRoles(method, path string) []string {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Roles
		}
	}
	panic(fmt.Sprintf("missing access roles for %s %s", method, path))
}

func roleAllowed(roles []string, role string) bool {
	return slices.Contains(roles, role)
}

func isPublicAccess(roles []string) bool {
	return roleAllowed(roles, RolePublic)
}
