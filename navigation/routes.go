package navigation

import (
	"net/url"
	"strings"
)

// Route names
const (
	RouteLogin          = "Login"
	RouteRegister       = "Register"
	RouteNodeList       = "NodeList"
	RouteUserManagement = "UserManagement"
	RouteSystemSettings = "SystemSettings"
	RouteNotFound       = "NotFound"
)

// CatchAll matches any path no other route claims.
const CatchAll = "*"

// Route is one record of the route table. Child paths are relative to the
// parent. A route with Redirect is never a final destination.
type Route struct {
	Path         string
	Name         string
	RequiresAuth bool
	Redirect     string
	Children     []Route
}

// DefaultRoutes is the application route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: "/login", Name: RouteLogin},
		{Path: "/register", Name: RouteRegister},
		{
			Path:         "/",
			Redirect:     "/nodes",
			RequiresAuth: true,
			Children: []Route{
				{Path: "nodes", Name: RouteNodeList},
				{Path: "system/users", Name: RouteUserManagement},
				{Path: "system/settings", Name: RouteSystemSettings},
			},
		},
		{Path: CatchAll, Name: RouteNotFound},
	}
}

// Location identifies a destination either by route Name or by Path.
type Location struct {
	Name  string
	Path  string
	Query url.Values
}

// FullPath is the path with its encoded query.
func (l Location) FullPath() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// Destination is a resolved Location. Matched lists the route records from
// the outermost parent to the route itself.
type Destination struct {
	Location
	Matched []Route
}

// RequiresAuth is true if any matched record requires authentication.
func (d Destination) RequiresAuth() bool {
	for _, r := range d.Matched {
		if r.RequiresAuth {
			return true
		}
	}
	return false
}

// record is a route flattened to its absolute path.
type record struct {
	path    string
	route   Route
	matched []Route
}

func flatten(routes []Route, parent string, ancestors []Route) []record {
	var out []record
	for _, r := range routes {
		chain := append(append([]Route(nil), ancestors...), r)
		full := r.Path
		if r.Path != CatchAll {
			full = joinPath(parent, r.Path)
		}
		out = append(out, record{path: full, route: r, matched: chain})
		out = append(out, flatten(r.Children, full, chain)...)
	}
	return out
}

func joinPath(parent, child string) string {
	if strings.HasPrefix(child, "/") {
		return cleanPath(child)
	}
	return cleanPath(strings.TrimRight(parent, "/") + "/" + child)
}

func cleanPath(p string) string {
	return "/" + strings.Trim(p, "/")
}
