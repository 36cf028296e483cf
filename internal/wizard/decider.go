package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/sikenali/DTOLPK/internal/cache"
	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/manifest"
	"github.com/sikenali/DTOLPK/internal/model"
	"go.uber.org/zap"
)

// Cache keys of the app questions.
const (
	keyName        = "app_name"
	keyPackage     = "app_package"
	keyVersion     = "app_version"
	keyDescription = "app_description"
	keyAuthor      = "app_author"
	keyRoutes      = "routes"
)

// Prompter shows one question with a preselected answer.
type Prompter func(ctx context.Context, q decide.Question, def string) (string, error)

// Decider asks a human. Previous answers from Store become the defaults
// and every answer is recorded under the question's key.
type Decider struct {
	Store  cache.Store
	Logger *zap.Logger
	// Prompt defaults to a terminal form.
	Prompt Prompter
}

func (d *Decider) Decide(ctx context.Context, q decide.Question) (string, error) {
	def := q.Default
	if v, ok := d.recall(q.Key); ok && q.Allows(v) {
		def = v
	}

	prompt := d.Prompt
	if prompt == nil {
		prompt = promptForm
	}
	v, err := prompt(ctx, q, def)
	if err != nil {
		return "", err
	}
	if !q.Allows(v) {
		return "", &decide.UnansweredError{Question: q, Answer: v}
	}
	if q.Validate != nil {
		if err := q.Validate(v); err != nil {
			return "", err
		}
	}
	d.remember(q.Key, v)
	return v, nil
}

func (d *Decider) recall(key string) (string, bool) {
	if d.Store == nil || key == "" {
		return "", false
	}
	v, ok := d.Store.Get(key)
	return v, ok && v != ""
}

func (d *Decider) remember(key, value string) {
	if d.Store == nil || key == "" {
		return
	}
	if err := d.Store.Set(key, value); err != nil {
		d.logger().Warn("could not cache answer", zap.String("key", key), zap.Error(err))
	}
}

func (d *Decider) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// promptForm renders q as a single-field form.
func promptForm(ctx context.Context, q decide.Question, def string) (string, error) {
	var field huh.Field
	value := def
	confirmed := def == decide.Yes

	switch {
	case q.Kind == decide.KindBuild || q.Kind == decide.KindReuseCached:
		field = huh.NewConfirm().Title(q.Title).Value(&confirmed)
	case len(q.Options) > 0:
		opts := make([]huh.Option[string], len(q.Options))
		for i, o := range q.Options {
			opts[i] = huh.NewOption(o.Label, o.Value)
		}
		field = huh.NewSelect[string]().Title(q.Title).Options(opts...).Value(&value)
	default:
		input := huh.NewInput().Title(q.Title).Value(&value)
		if q.Validate != nil {
			input = input.Validate(q.Validate)
		}
		field = input
	}

	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		return "", err
	}
	if q.Kind == decide.KindBuild || q.Kind == decide.KindReuseCached {
		if confirmed {
			return decide.Yes, nil
		}
		return decide.No, nil
	}
	return strings.TrimSpace(value), nil
}

// AskApp fills in the identity and feature flags not set yet. Features are
// asked only when askFeatures is set.
func (d *Decider) AskApp(ctx context.Context, app *model.AppSpec, askFeatures bool) error {
	type text struct {
		title    string
		key      string
		value    *string
		validate func(string) error
	}
	texts := []text{
		{"Application name", keyName, &app.Name, required("name")},
		{"Package id", keyPackage, &app.Package, manifest.ValidatePackage},
		{"Version", keyVersion, &app.Version, manifest.ValidateVersion},
		{"Description (optional)", keyDescription, &app.Description, nil},
		{"Author (optional)", keyAuthor, &app.Author, nil},
	}

	var fields []huh.Field
	var asked []text
	for _, t := range texts {
		if *t.value != "" {
			continue
		}
		if v, ok := d.recall(t.key); ok {
			*t.value = v
		}
		input := huh.NewInput().Title(t.title).Value(t.value)
		if t.validate != nil {
			input = input.Validate(t.validate)
		}
		fields = append(fields, input)
		asked = append(asked, t)
	}
	if askFeatures {
		fields = append(fields,
			huh.NewConfirm().Title("Keep running in the background?").Value(&app.Features.BackgroundTask),
			huh.NewConfirm().Title("One instance per user?").Value(&app.Features.MultiInstance),
		)
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
		return err
	}
	for _, t := range asked {
		*t.value = strings.TrimSpace(*t.value)
		d.remember(t.key, *t.value)
	}
	return nil
}

// AskRoutes lets the user pick routes among the candidates derived from the
// services' ports. The previous selection is preselected.
func (d *Decider) AskRoutes(ctx context.Context, services []model.ComposeService) ([]model.Route, error) {
	candidates := Candidates(services)
	if len(candidates) == 0 {
		return nil, nil
	}

	var previous []string
	if v, ok := d.recall(keyRoutes); ok {
		var routes []model.Route
		if err := json.Unmarshal([]byte(v), &routes); err == nil {
			for _, r := range routes {
				previous = append(previous, describeRoute(r))
			}
		}
	}

	opts := make([]huh.Option[string], len(candidates))
	for i, r := range candidates {
		label := describeRoute(r)
		selected := (i == 0 && previous == nil) || contains(previous, label)
		opts[i] = huh.NewOption(label, strconv.Itoa(i)).Selected(selected)
	}

	var picked []string
	form := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Which routes should the app expose?").
			Options(opts...).
			Value(&picked),
	))
	if err := form.RunWithContext(ctx); err != nil {
		return nil, err
	}

	routes := make([]model.Route, 0, len(picked))
	for _, p := range picked {
		i, err := strconv.Atoi(p)
		if err != nil || i < 0 || i >= len(candidates) {
			continue
		}
		routes = append(routes, candidates[i])
	}
	if data, err := json.Marshal(routes); err == nil {
		d.remember(keyRoutes, string(data))
	}
	return routes, nil
}

// Candidates proposes routes for the services' published ports. The first
// tcp port of each service becomes an HTTP route, "/" for the first service
// and "/{service}/" for the others. Remaining ports become port routes.
func Candidates(services []model.ComposeService) []model.Route {
	var out []model.Route
	root := true
	for _, s := range services {
		if s.Reserved() {
			continue
		}
		http := false
		for _, p := range s.Ports {
			if p.Protocol == "tcp" && !http {
				path := "/"
				if !root {
					path = "/" + s.Name + "/"
				}
				out = append(out, model.Route{Type: model.RouteHTTP, Path: path, Service: s.Name, Port: p.ContainerPort})
				http, root = true, false
				continue
			}
			out = append(out, model.Route{Type: model.RoutePort, Service: s.Name, Port: p.ContainerPort, Protocol: p.Protocol})
		}
	}
	return out
}

func describeRoute(r model.Route) string {
	if r.Type == model.RoutePort {
		return fmt.Sprintf("port %d/%s → %s", r.Port, r.Protocol, r.Service)
	}
	return fmt.Sprintf("%s %s → %s:%d", r.Type, r.Path, r.Service, r.Port)
}
