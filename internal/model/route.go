package model

import (
	"encoding/json"
	"fmt"
)

// RouteType is the kind of entry point a route exposes.
type RouteType string

const (
	RouteHTTP   RouteType = "http"
	RouteHTTPS  RouteType = "https"
	RoutePort   RouteType = "port"
	RouteStatic RouteType = "static"
	RouteExec   RouteType = "exec"
)

// Valid reports whether t is a known route type.
func (t RouteType) Valid() bool {
	switch t {
	case RouteHTTP, RouteHTTPS, RoutePort, RouteStatic, RouteExec:
		return true
	}
	return false
}

// Route is a user-declared entry point into the app.
//
// Target depends on Type: a sub-path or full URL for http/https, a content
// path for static, an exec:// URL for exec, and a port number for port.
type Route struct {
	Type     RouteType `json:"type" mapstructure:"type"`
	Path     string    `json:"path,omitempty" mapstructure:"path"`
	Target   string    `json:"target,omitempty" mapstructure:"target"`
	Service  string    `json:"service,omitempty" mapstructure:"service"`
	Port     int       `json:"port,omitempty" mapstructure:"port"`
	Protocol string    `json:"protocol,omitempty" mapstructure:"protocol"`
}

// legacyRoute is the nested form older route files use:
// {"type": "ingress", "config": {"protocol": "tcp", "port": 22, "service": "ssh"}}.
type legacyRoute struct {
	Type   RouteType       `json:"type"`
	Config json.RawMessage `json:"config"`
}

// UnmarshalJSON accepts both the flat and the nested route forms.
func (r *Route) UnmarshalJSON(data []byte) error {
	var legacy legacyRoute
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}

	type flat Route
	var out flat
	src := data
	if len(legacy.Config) > 0 && string(legacy.Config) != "null" {
		src = legacy.Config
	}
	if err := json.Unmarshal(src, &out); err != nil {
		return fmt.Errorf("route: %w", err)
	}

	out.Type = legacy.Type
	if out.Type == "ingress" {
		out.Type = RoutePort
	}
	*r = Route(out)
	return nil
}

// ParseRoutes decodes a JSON array of routes.
func ParseRoutes(data string) ([]Route, error) {
	var routes []Route
	if err := json.Unmarshal([]byte(data), &routes); err != nil {
		return nil, &ValidationError{
			Field:      "routes",
			Message:    fmt.Sprintf("invalid routes JSON: %v", err),
			Suggestion: `pass a JSON array, e.g. [{"type":"http","path":"/","service":"web","port":80}]`,
		}
	}
	return routes, nil
}
