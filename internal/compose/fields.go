package compose

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/sikenali/DTOLPK/internal/model"
	"gopkg.in/yaml.v3"
)

// Each Compose field that may be written in more than one shape has its own
// type here. UnmarshalYAML folds every accepted shape into one canonical
// form, so nothing downstream looks at the raw YAML again.

func invalid(field, msg, suggestion string) *model.ValidationError {
	return &model.ValidationError{Field: field, Message: msg, Suggestion: suggestion}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// portList accepts ["8080:80", 80, {target: 80, published: 8080}].
type portList []model.PortMapping

func (p *portList) UnmarshalYAML(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return invalid("ports", "must be a list", `e.g. ports: ["8080:80"]`)
	}
	for i, item := range n.Content {
		field := fmt.Sprintf("ports[%d]", i)
		var spec string
		switch item.Kind {
		case yaml.ScalarNode:
			spec = item.Value
		case yaml.MappingNode:
			var obj struct {
				Target    string `yaml:"target"`
				Published string `yaml:"published"`
				Protocol  string `yaml:"protocol"`
				HostIP    string `yaml:"host_ip"`
			}
			if err := item.Decode(&obj); err != nil {
				return invalid(field, err.Error(), "")
			}
			if obj.Target == "" {
				return invalid(field, "target is required", "set target to the container port")
			}
			spec = obj.Target
			if obj.Published != "" {
				spec = obj.Published + ":" + spec
				if obj.HostIP != "" {
					spec = obj.HostIP + ":" + spec
				}
			}
			if obj.Protocol != "" {
				spec += "/" + strings.ToLower(obj.Protocol)
			}
		default:
			return invalid(field, "must be a string, number or mapping", "")
		}

		mappings, err := model.ParsePortMapping(spec)
		if err != nil {
			if ve, ok := err.(*model.ValidationError); ok {
				ve.Field = field
				return ve
			}
			return err
		}
		*p = append(*p, mappings...)
	}
	return nil
}

type envPair struct {
	Key   string
	Value string
	Bare  bool // "KEY" with no "=", resolved from the environment
}

// envBlock accepts ["K=V", "K"] or {K: V}.
type envBlock []envPair

func (e *envBlock) UnmarshalYAML(n *yaml.Node) error {
	switch {
	case isNull(n):
		return nil
	case n.Kind == yaml.SequenceNode:
		for i, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return invalid(fmt.Sprintf("environment[%d]", i), "must be a KEY=VALUE string", "")
			}
			k, v, ok := strings.Cut(item.Value, "=")
			if k == "" {
				return invalid(fmt.Sprintf("environment[%d]", i), fmt.Sprintf("missing variable name in %q", item.Value), "use KEY=VALUE")
			}
			*e = append(*e, envPair{Key: k, Value: v, Bare: !ok})
		}
	case n.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return invalid("environment."+k.Value, "value must be a scalar", "")
			}
			val := v.Value
			if isNull(v) {
				val = ""
			}
			*e = append(*e, envPair{Key: k.Value, Value: val})
		}
	default:
		return invalid("environment", "must be a list or mapping", "")
	}
	return nil
}

// volumeList accepts ["src:dst", "src:dst:ro", "dst"] and long-form
// mappings {type, source, target, read_only}.
type volumeList []model.BindMount

func (v *volumeList) UnmarshalYAML(n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return invalid("volumes", "must be a list", `e.g. volumes: ["./data:/data"]`)
	}
	for i, item := range n.Content {
		field := fmt.Sprintf("volumes[%d]", i)
		var m model.BindMount
		switch item.Kind {
		case yaml.ScalarNode:
			m = parseVolumeString(item.Value)
		case yaml.MappingNode:
			var obj struct {
				Type     string `yaml:"type"`
				Source   string `yaml:"source"`
				Target   string `yaml:"target"`
				ReadOnly bool   `yaml:"read_only"`
			}
			if err := item.Decode(&obj); err != nil {
				return invalid(field, err.Error(), "")
			}
			m = model.BindMount{Source: obj.Source, Target: obj.Target, Mode: model.ModeReadWrite}
			if obj.Type == "tmpfs" {
				m.Source = ""
			}
			if obj.ReadOnly {
				m.Mode = model.ModeReadOnly
			}
		default:
			return invalid(field, "must be a string or mapping", "")
		}
		if !path.IsAbs(m.Target) {
			return invalid(field, fmt.Sprintf("target %q is not an absolute path", m.Target), "mount targets are container paths like /data")
		}
		*v = append(*v, m)
	}
	return nil
}

func parseVolumeString(s string) model.BindMount {
	m := model.BindMount{Mode: model.ModeReadWrite}
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		m.Target = parts[0]
	case 2:
		m.Source, m.Target = parts[0], parts[1]
	default:
		m.Source, m.Target = parts[0], parts[1]
		if strings.Contains(parts[2], model.ModeReadOnly) {
			m.Mode = model.ModeReadOnly
		}
	}
	return m
}

// commandLine accepts a string or a list of tokens joined with spaces.
type commandLine string

func (c *commandLine) UnmarshalYAML(n *yaml.Node) error {
	switch {
	case isNull(n):
	case n.Kind == yaml.ScalarNode:
		*c = commandLine(n.Value)
	case n.Kind == yaml.SequenceNode:
		parts := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			parts = append(parts, item.Value)
		}
		*c = commandLine(strings.Join(parts, " "))
	default:
		return invalid("", "must be a string or list", "")
	}
	return nil
}

// dependsOn accepts a list of names or a name → condition mapping.
type dependsOn []string

func (d *dependsOn) UnmarshalYAML(n *yaml.Node) error {
	switch {
	case isNull(n):
	case n.Kind == yaml.SequenceNode:
		for _, item := range n.Content {
			*d = append(*d, item.Value)
		}
	case n.Kind == yaml.MappingNode:
		for i := 0; i < len(n.Content); i += 2 {
			*d = append(*d, n.Content[i].Value)
		}
	default:
		return invalid("depends_on", "must be a list or mapping", "")
	}
	return nil
}

// stringList accepts a string or a list; list items may be {path, required}.
type stringList []listItem

type listItem struct {
	Value    string
	Optional bool
}

func (s *stringList) UnmarshalYAML(n *yaml.Node) error {
	switch {
	case isNull(n):
	case n.Kind == yaml.ScalarNode:
		*s = append(*s, listItem{Value: n.Value})
	case n.Kind == yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind == yaml.MappingNode {
				var obj struct {
					Path     string `yaml:"path"`
					Required *bool  `yaml:"required"`
				}
				if err := item.Decode(&obj); err != nil {
					return invalid("", err.Error(), "")
				}
				*s = append(*s, listItem{Value: obj.Path, Optional: obj.Required != nil && !*obj.Required})
				continue
			}
			*s = append(*s, listItem{Value: item.Value})
		}
	default:
		return invalid("", "must be a string or list", "")
	}
	return nil
}

// buildSpec accepts "./dir" or {context, dockerfile}.
type buildSpec model.BuildConfig

func (b *buildSpec) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		b.Context = n.Value
	case yaml.MappingNode:
		var obj struct {
			Context    string `yaml:"context"`
			Dockerfile string `yaml:"dockerfile"`
		}
		if err := n.Decode(&obj); err != nil {
			return invalid("build", err.Error(), "")
		}
		b.Context, b.Dockerfile = obj.Context, obj.Dockerfile
	default:
		return invalid("build", "must be a path or mapping", "")
	}
	if b.Context == "" {
		b.Context = "."
	}
	return nil
}

// healthSpec folds the healthcheck block into model.HealthCheck with
// defaults applied.
type healthSpec model.HealthCheck

func (h *healthSpec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return invalid("healthcheck", "must be a mapping", "")
	}
	var raw struct {
		Disable     bool      `yaml:"disable"`
		Test        yaml.Node `yaml:"test"`
		TestURL     string    `yaml:"test_url"`
		StartPeriod yaml.Node `yaml:"start_period"`
		Interval    yaml.Node `yaml:"interval"`
		Timeout     yaml.Node `yaml:"timeout"`
		Retries     yaml.Node `yaml:"retries"`
	}
	if err := n.Decode(&raw); err != nil {
		return invalid("healthcheck", err.Error(), "")
	}
	if raw.Disable {
		*h = healthSpec(*model.DisabledHealthCheck())
		return nil
	}

	out := healthSpec{
		TestURL:     raw.TestURL,
		StartPeriod: duration(raw.StartPeriod, model.DefaultStartPeriod),
		Interval:    duration(raw.Interval, model.DefaultInterval),
		Timeout:     duration(raw.Timeout, model.DefaultTimeout),
		Retries:     model.DefaultRetries,
	}
	switch raw.Test.Kind {
	case yaml.ScalarNode:
		if raw.Test.Value != "" && !isNull(&raw.Test) {
			out.Test = []string{raw.Test.Value}
		}
	case yaml.SequenceNode:
		for _, tok := range raw.Test.Content {
			out.Test = append(out.Test, tok.Value)
		}
	}
	if len(out.Test) > 0 && out.Test[0] == "NONE" {
		*h = healthSpec(*model.DisabledHealthCheck())
		return nil
	}
	if raw.Retries.Kind == yaml.ScalarNode && !isNull(&raw.Retries) {
		r, err := strconv.Atoi(strings.TrimSpace(raw.Retries.Value))
		if err != nil || r < 0 {
			return invalid("healthcheck.retries", fmt.Sprintf("invalid retries %q", raw.Retries.Value), "use a non-negative integer")
		}
		out.Retries = r
	}
	*h = out
	return nil
}

// duration returns the node's value, treating bare numbers as seconds.
func duration(n yaml.Node, def string) string {
	if n.Kind != yaml.ScalarNode || isNull(&n) || n.Value == "" {
		return def
	}
	if _, err := strconv.ParseFloat(n.Value, 64); err == nil {
		return n.Value + "s"
	}
	return n.Value
}
