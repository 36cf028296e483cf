package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

// PortMapping represents a port binding.
type PortMapping struct {
	HostIP        string
	HostPort      int
	ContainerPort int
	Protocol      string // tcp or udp
}

// String returns a human-readable port mapping.
func (p PortMapping) String() string {
	proto := p.Protocol
	if proto == "" || proto == "tcp" {
		proto = ""
	} else {
		proto = "/" + proto
	}
	if p.HostPort == p.ContainerPort {
		return fmt.Sprintf("%d%s", p.HostPort, proto)
	}
	return fmt.Sprintf("%d→%d%s", p.HostPort, p.ContainerPort, proto)
}

// ParsePortMapping parses a Docker port string like "8080:80", "80",
// "8080:80/udp" or "127.0.0.1:8080:80/tcp". Ranges expand to one mapping per
// port. A port without a host side is published on the same host port.
func ParsePortMapping(s string) ([]PortMapping, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &ValidationError{Field: "ports", Message: "empty port mapping", Suggestion: `use "host:container" or "container"`}
	}

	specs, err := nat.ParsePortSpec(s)
	if err != nil {
		return nil, &ValidationError{
			Field:      "ports",
			Message:    fmt.Sprintf("invalid port mapping %q: %v", s, err),
			Suggestion: `use "host:container", "host:container/proto" or "container"`,
		}
	}

	out := make([]PortMapping, 0, len(specs))
	for _, spec := range specs {
		pm := PortMapping{
			HostIP:        spec.Binding.HostIP,
			ContainerPort: spec.Port.Int(),
			Protocol:      spec.Port.Proto(),
		}
		if spec.Binding.HostPort == "" {
			pm.HostPort = pm.ContainerPort
		} else {
			hp, err := strconv.Atoi(spec.Binding.HostPort)
			if err != nil {
				return nil, &ValidationError{Field: "ports", Message: fmt.Sprintf("invalid host port %q", spec.Binding.HostPort)}
			}
			pm.HostPort = hp
		}
		if err := pm.Validate(); err != nil {
			return nil, err
		}
		out = append(out, pm)
	}
	return out, nil
}

// Validate checks port ranges and protocol.
func (p PortMapping) Validate() error {
	if p.HostPort < 1 || p.HostPort > 65535 {
		return &ValidationError{Field: "ports", Message: fmt.Sprintf("host port %d out of range", p.HostPort), Suggestion: "ports must be between 1 and 65535"}
	}
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return &ValidationError{Field: "ports", Message: fmt.Sprintf("container port %d out of range", p.ContainerPort), Suggestion: "ports must be between 1 and 65535"}
	}
	if !ValidProtocol(p.Protocol) {
		return &ValidationError{Field: "ports", Message: fmt.Sprintf("unsupported protocol %q", p.Protocol), Suggestion: "use tcp or udp"}
	}
	return nil
}

// ValidProtocol reports whether proto is one the platform can expose.
func ValidProtocol(proto string) bool {
	return proto == "tcp" || proto == "udp"
}
