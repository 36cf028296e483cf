// Package compose normalizes Docker Compose service definitions into
// model.ComposeService records.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/sikenali/DTOLPK/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyInput  = errors.New("compose document is empty")
	ErrInvalidYAML = errors.New("compose document is not valid YAML")
	ErrNoServices  = errors.New("compose document has no services")
)

// DefaultFiles are the names looked for when no compose file is given.
var DefaultFiles = []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"}

// Options control parsing.
type Options struct {
	// Dir is the compose file's directory. env_file entries resolve
	// against it.
	Dir string
	// DotEnv holds interpolation values consulted before the process
	// environment.
	DotEnv map[string]string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv LookupFunc
	Logger    *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Project is a parsed compose document.
type Project struct {
	Dir      string
	Files    []string
	Services []model.ComposeService
}

// Service returns the service with the given name.
func (p *Project) Service(name string) (model.ComposeService, bool) {
	for _, s := range p.Services {
		if s.Name == name {
			return s, true
		}
	}
	return model.ComposeService{}, false
}

// Names returns service names in document order.
func (p *Project) Names() []string {
	names := make([]string, 0, len(p.Services))
	for _, s := range p.Services {
		names = append(names, s.Name)
	}
	return names
}

type rawService struct {
	Image       string      `yaml:"image"`
	Build       *buildSpec  `yaml:"build"`
	Command     commandLine `yaml:"command"`
	Entrypoint  commandLine `yaml:"entrypoint"`
	Environment envBlock    `yaml:"environment"`
	EnvFile     stringList  `yaml:"env_file"`
	Volumes     volumeList  `yaml:"volumes"`
	Ports       portList    `yaml:"ports"`
	DependsOn   dependsOn   `yaml:"depends_on"`
	HealthCheck *healthSpec `yaml:"healthcheck"`
}

// Parse normalizes one compose document. Top-level keys other than
// services are ignored.
func Parse(data []byte, opts Options) (*Project, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if len(doc.Content) == 0 {
		return nil, ErrEmptyInput
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrInvalidYAML)
	}

	services := mappingValue(root, "services")
	if services == nil || services.Kind != yaml.MappingNode || len(services.Content) == 0 {
		return nil, ErrNoServices
	}

	lookup := chainLookup(opts.DotEnv, opts.LookupEnv)
	interpolateNode(services, lookup)

	p := &Project{Dir: opts.Dir}
	for i := 0; i+1 < len(services.Content); i += 2 {
		name := services.Content[i].Value
		svc, err := normalize(name, services.Content[i+1], opts, lookup)
		if err != nil {
			var ve *model.ValidationError
			if errors.As(err, &ve) {
				return nil, ve.Prefix("services." + name)
			}
			return nil, fmt.Errorf("services.%s: %w", name, err)
		}
		p.Services = append(p.Services, svc)
	}
	return p, nil
}

// LoadFiles parses each file in order. A service defined again in a later
// file replaces the earlier definition in place.
func LoadFiles(paths []string, opts Options) (*Project, error) {
	if len(paths) == 0 {
		return nil, ErrEmptyInput
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Dir(paths[0])
	}

	merged := &Project{Dir: opts.Dir}
	index := map[string]int{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &model.IOError{Op: "read", Path: path, Err: err}
		}
		p, err := Parse(data, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		merged.Files = append(merged.Files, path)
		for _, svc := range p.Services {
			if i, ok := index[svc.Name]; ok {
				merged.Services[i] = svc
				continue
			}
			index[svc.Name] = len(merged.Services)
			merged.Services = append(merged.Services, svc)
		}
	}
	opts.logger().Debug("compose loaded",
		zap.Strings("files", merged.Files),
		zap.Strings("services", merged.Names()))
	return merged, nil
}

// FindFile returns the first default compose file present in dir.
func FindFile(dir string) (string, bool) {
	for _, name := range DefaultFiles {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// LoadDotEnv reads a .env file. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	env, err := dotenv.Read(path)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}
	return env, nil
}

func normalize(name string, node *yaml.Node, opts Options, lookup LookupFunc) (model.ComposeService, error) {
	svc := model.ComposeService{Name: name}
	if isNull(node) {
		return svc, nil
	}
	if node.Kind != yaml.MappingNode {
		return svc, invalid("", "service definition must be a mapping", "")
	}

	var raw rawService
	if err := node.Decode(&raw); err != nil {
		return svc, err
	}

	svc.Image = raw.Image
	if raw.Build != nil {
		b := model.BuildConfig(*raw.Build)
		svc.Build = &b
	}
	svc.Command = string(raw.Command)
	svc.Entrypoint = string(raw.Entrypoint)
	svc.Volumes = raw.Volumes
	svc.Ports = raw.Ports
	svc.DependsOn = raw.DependsOn
	if raw.HealthCheck != nil {
		hc := model.HealthCheck(*raw.HealthCheck)
		svc.HealthCheck = &hc
	}

	env := newEnvList()
	for _, f := range raw.EnvFile {
		svc.EnvFiles = append(svc.EnvFiles, f.Value)
		values, err := readEnvFile(opts.Dir, f.Value)
		if errors.Is(err, os.ErrNotExist) {
			if !f.Optional {
				opts.logger().Warn("env_file not found, skipping", zap.String("service", name), zap.String("path", f.Value))
			}
			continue
		}
		if err != nil {
			return svc, err
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			env.set(k, values[k])
		}
	}
	for _, pair := range raw.Environment {
		if pair.Bare {
			v, ok := lookup(pair.Key)
			if !ok {
				continue
			}
			pair.Value = v
		}
		env.set(pair.Key, pair.Value)
	}
	svc.Environment = env.list()
	return svc, nil
}

func readEnvFile(dir, name string) (map[string]string, error) {
	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	if _, err := os.Stat(p); err != nil {
		return nil, err
	}
	values, err := dotenv.Read(p)
	if err != nil {
		return nil, &model.IOError{Op: "read env_file", Path: p, Err: err}
	}
	return values, nil
}

// envList keeps keys unique: the last value wins, the first position stays.
type envList struct {
	keys   []string
	values map[string]string
}

func newEnvList() *envList {
	return &envList{values: map[string]string{}}
}

func (e *envList) set(k, v string) {
	if _, ok := e.values[k]; !ok {
		e.keys = append(e.keys, k)
	}
	e.values[k] = v
}

func (e *envList) list() []string {
	if len(e.keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+"="+e.values[k])
	}
	return out
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
