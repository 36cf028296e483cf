package compose

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var tokenRe = regexp.MustCompile(`\$\{[^}]+\}`)

// LookupFunc resolves a variable name.
type LookupFunc func(name string) (string, bool)

// chainLookup consults the dotenv map, then the process environment. Empty
// values count as unset so that a ":-" default still applies.
func chainLookup(dotenv map[string]string, env LookupFunc) LookupFunc {
	if env == nil {
		env = os.LookupEnv
	}
	return func(name string) (string, bool) {
		if v, ok := dotenv[name]; ok && v != "" {
			return v, true
		}
		if v, ok := env(name); ok && v != "" {
			return v, true
		}
		return "", false
	}
}

// Interpolate substitutes ${NAME} and ${NAME:-default} tokens in s.
// Unresolved names without a default become empty. The second result
// reports whether s contained any token.
func Interpolate(s string, lookup LookupFunc) (string, bool) {
	found := false
	out := tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
		found = true
		expr := tok[2 : len(tok)-1]
		name, def, _ := strings.Cut(expr, ":-")
		if v, ok := lookup(strings.TrimSpace(name)); ok {
			return v
		}
		return def
	})
	return out, found
}

// interpolateNode rewrites every scalar under n in place. A scalar that held
// a token and resolves to a number is retyped as one, whatever field it
// belongs to.
func interpolateNode(n *yaml.Node, lookup LookupFunc) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			interpolateNode(c, lookup)
		}
	case yaml.MappingNode:
		// keys are left alone
		for i := 1; i < len(n.Content); i += 2 {
			interpolateNode(n.Content[i], lookup)
		}
	case yaml.AliasNode:
		interpolateNode(n.Alias, lookup)
	case yaml.ScalarNode:
		if !strings.Contains(n.Value, "${") {
			return
		}
		val, found := Interpolate(n.Value, lookup)
		if !found {
			return
		}
		n.Style = 0
		n.Value, n.Tag = coerce(val)
	}
}

var floatRe = regexp.MustCompile(`^[-+]?(\d+\.\d*|\.\d+)$`)

// coerce returns the canonical value and tag for an interpolated scalar.
func coerce(s string) (string, string) {
	t := strings.TrimSpace(s)
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return strconv.FormatInt(i, 10), "!!int"
	}
	if floatRe.MatchString(t) {
		return t, "!!float"
	}
	switch strings.ToLower(t) {
	case "true", "false":
		return strings.ToLower(t), "!!bool"
	}
	return s, "!!str"
}
