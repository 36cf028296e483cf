package manifest

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/sikenali/DTOLPK/internal/model"
)

// DefaultRoute routes / to the first non-reserved service publishing a tcp
// port. ok is false when no service qualifies.
func DefaultRoute(services []model.ComposeService) (model.Route, bool) {
	for _, s := range services {
		if s.Reserved() {
			continue
		}
		for _, p := range s.Ports {
			if p.Protocol == "tcp" {
				return model.Route{Type: model.RouteHTTP, Path: "/", Service: s.Name, Port: p.ContainerPort}, true
			}
		}
	}
	return model.Route{}, false
}

// routeRenderer turns routes into application.routes entries and ingress
// records.
type routeRenderer struct {
	layout   model.Layout
	pkg      string
	services []string // non-reserved, in compose order
}

func (rr *routeRenderer) render(routes []model.Route) ([]string, []model.Ingress, error) {
	var (
		entries []string
		ingress []model.Ingress
	)
	for i, r := range routes {
		field := fmt.Sprintf("routes[%d]", i)
		switch r.Type {
		case model.RouteHTTP, model.RouteHTTPS:
			e, err := rr.http(r)
			if err != nil {
				return nil, nil, prefix(err, field)
			}
			entries = append(entries, e)
		case model.RouteStatic:
			e, err := rr.static(r)
			if err != nil {
				return nil, nil, prefix(err, field)
			}
			entries = append(entries, e)
		case model.RouteExec:
			if !strings.HasPrefix(r.Target, "exec://") {
				return nil, nil, &model.ValidationError{Field: field + ".target", Message: fmt.Sprintf("exec target %q must start with exec://", r.Target), Suggestion: "e.g. exec://8080,/app/start.sh"}
			}
			p, err := routePath(r.Path)
			if err != nil {
				return nil, nil, prefix(err, field)
			}
			entries = append(entries, p+"="+r.Target)
		case model.RoutePort:
			in, err := rr.ingress(r)
			if err != nil {
				return nil, nil, prefix(err, field)
			}
			ingress = append(ingress, in)
		default:
			return nil, nil, &model.ValidationError{Field: field + ".type", Message: fmt.Sprintf("unknown route type %q", r.Type), Suggestion: "use http, https, port, static or exec"}
		}
	}
	return entries, ingress, nil
}

func (rr *routeRenderer) http(r model.Route) (string, error) {
	p, err := routePath(r.Path)
	if err != nil {
		return "", err
	}
	if strings.Contains(r.Target, "://") {
		return p + "=" + r.Target, nil
	}

	svc, err := rr.service(r.Service)
	if err != nil {
		return "", err
	}
	port := r.Port
	if port == 0 {
		port = 80
	}
	if port < 1 || port > 65535 {
		return "", &model.ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", port), Suggestion: "ports must be between 1 and 65535"}
	}
	sub := r.Target
	if sub != "" && !strings.HasPrefix(sub, "/") {
		sub = "/" + sub
	}
	return fmt.Sprintf("%s=%s://%s.%s.%s:%d%s", p, r.Type, svc, rr.pkg, rr.layout.Domain, port, sub), nil
}

func (rr *routeRenderer) static(r model.Route) (string, error) {
	p, err := routePath(r.Path)
	if err != nil {
		return "", err
	}
	target := strings.TrimPrefix(r.Target, "file://")
	if target == "" {
		return "", &model.ValidationError{Field: "target", Message: "static route has no content path"}
	}
	if path.IsAbs(target) {
		if !rr.layout.InContent(target) {
			return "", &model.ValidationError{
				Field:      "target",
				Message:    fmt.Sprintf("static path %q is outside %s", target, rr.layout.ContentRoot),
				Suggestion: "use a path relative to the packaged content",
			}
		}
		target = path.Clean(target)
	} else {
		target = rr.layout.ContentPath(target)
		if !rr.layout.InContent(target) {
			return "", &model.ValidationError{Field: "target", Message: fmt.Sprintf("static path %q escapes the content directory", r.Target)}
		}
	}
	return p + "=file://" + target, nil
}

func (rr *routeRenderer) ingress(r model.Route) (model.Ingress, error) {
	port := r.Port
	if port == 0 {
		n, err := strconv.Atoi(strings.TrimSpace(r.Target))
		if err != nil {
			return model.Ingress{}, &model.ValidationError{Field: "port", Message: fmt.Sprintf("invalid port %q", r.Target), Suggestion: "give the port as an integer"}
		}
		port = n
	}
	if port < 1 || port > 65535 {
		return model.Ingress{}, &model.ValidationError{Field: "port", Message: fmt.Sprintf("port %d out of range", port), Suggestion: "ports must be between 1 and 65535"}
	}
	proto := strings.ToLower(r.Protocol)
	if proto == "" {
		proto = "tcp"
	}
	if !model.ValidProtocol(proto) {
		return model.Ingress{}, &model.ValidationError{Field: "protocol", Message: fmt.Sprintf("unsupported protocol %q", r.Protocol), Suggestion: "use tcp or udp"}
	}
	svc, err := rr.service(r.Service)
	if err != nil {
		return model.Ingress{}, err
	}
	return model.Ingress{Protocol: proto, Port: port, Service: svc}, nil
}

// service defaults to the first non-reserved service.
func (rr *routeRenderer) service(name string) (string, error) {
	if name == "" {
		if len(rr.services) == 0 {
			return "", &model.ValidationError{Field: "service", Message: "no service to route to"}
		}
		return rr.services[0], nil
	}
	for _, s := range rr.services {
		if s == name {
			return name, nil
		}
	}
	return "", &model.ValidationError{Field: "service", Message: fmt.Sprintf("unknown service %q", name), Suggestion: "use one of: " + strings.Join(rr.services, ", ")}
}

func routePath(p string) (string, error) {
	if p == "" {
		return "/", nil
	}
	if !strings.HasPrefix(p, "/") {
		return "", &model.ValidationError{Field: "path", Message: fmt.Sprintf("route path %q must start with /", p)}
	}
	return p, nil
}

// publicPaths merges explicit paths with the paths of http and https
// routes, first occurrence kept.
func publicPaths(explicit []string, routes []model.Route) []string {
	var out []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, p := range explicit {
		add(p)
	}
	for _, r := range routes {
		if r.Type == model.RouteHTTP || r.Type == model.RouteHTTPS {
			if r.Path == "" {
				add("/")
				continue
			}
			add(r.Path)
		}
	}
	return out
}

func prefix(err error, parent string) error {
	if ve, ok := err.(*model.ValidationError); ok {
		return ve.Prefix(parent)
	}
	return err
}
