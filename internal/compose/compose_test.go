package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func parse(t *testing.T, doc string) *Project {
	t.Helper()
	p, err := Parse([]byte(doc), Options{LookupEnv: noEnv})
	require.NoError(t, err)
	return p
}

func TestParseServiceOrder(t *testing.T) {
	p := parse(t, `
version: "3"
services:
  web:
    image: nginx:latest
  db:
    image: postgres:16
  cache:
    image: redis:7
volumes:
  data: {}
`)
	assert.Equal(t, []string{"web", "db", "cache"}, p.Names())
	db, ok := p.Service("db")
	require.True(t, ok)
	assert.Equal(t, "postgres:16", db.Image)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"empty", "", ErrEmptyInput},
		{"whitespace", "  \n\n", ErrEmptyInput},
		{"invalid yaml", "services: [web", ErrInvalidYAML},
		{"scalar root", "hello", ErrInvalidYAML},
		{"no services", "version: '3'\n", ErrNoServices},
		{"empty services", "services: {}\n", ErrNoServices},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), Options{LookupEnv: noEnv})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPortFormsAreEquivalent(t *testing.T) {
	want := []model.PortMapping{{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}}

	forms := map[string]string{
		"short":        `["8080:80"]`,
		"with proto":   `["8080:80/tcp"]`,
		"object":       `[{target: 80, published: 8080}]`,
		"object proto": `[{target: 80, published: "8080", protocol: tcp}]`,
	}
	for name, ports := range forms {
		t.Run(name, func(t *testing.T) {
			p := parse(t, "services:\n  web:\n    ports: "+ports+"\n")
			assert.Equal(t, want, p.Services[0].Ports)
		})
	}
}

func TestPortContainerOnly(t *testing.T) {
	for _, ports := range []string{`["80"]`, `[80]`, `[{target: 80}]`} {
		p := parse(t, "services:\n  web:\n    ports: "+ports+"\n")
		require.Len(t, p.Services[0].Ports, 1, ports)
		assert.Equal(t, model.PortMapping{HostPort: 80, ContainerPort: 80, Protocol: "tcp"}, p.Services[0].Ports[0], ports)
	}
}

func TestPortUDP(t *testing.T) {
	p := parse(t, `
services:
  dns:
    ports:
      - "53:53/udp"
      - {target: 5353, published: 5353, protocol: udp}
`)
	require.Len(t, p.Services[0].Ports, 2)
	for _, pm := range p.Services[0].Ports {
		assert.Equal(t, "udp", pm.Protocol)
	}
}

func TestPortInvalid(t *testing.T) {
	tests := []string{
		`["web:80"]`,
		`["8080:http"]`,
		`["70000:80"]`,
		`["8080:80/sctp"]`,
		`[{published: 8080}]`,
	}
	for _, ports := range tests {
		t.Run(ports, func(t *testing.T) {
			_, err := Parse([]byte("services:\n  web:\n    ports: "+ports+"\n"), Options{LookupEnv: noEnv})
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "services.web.ports[0]", ve.Field)
		})
	}
}

func TestEnvironmentFormsAreEquivalent(t *testing.T) {
	list := parse(t, `
services:
  web:
    environment:
      - A=1
      - B=x=y
      - C=
`)
	mapping := parse(t, `
services:
  web:
    environment:
      A: 1
      B: x=y
      C:
`)
	want := []string{"A=1", "B=x=y", "C="}
	assert.Equal(t, want, list.Services[0].Environment)
	assert.Equal(t, want, mapping.Services[0].Environment)
}

func TestEnvironmentBareKey(t *testing.T) {
	p, err := Parse([]byte(`
services:
  web:
    environment:
      - TOKEN
      - MISSING
`), Options{LookupEnv: func(k string) (string, bool) {
		if k == "TOKEN" {
			return "secret", true
		}
		return "", false
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"TOKEN=secret"}, p.Services[0].Environment)
}

func TestEnvFileMerge(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.env"), []byte("B=base\nA=base\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.env"), []byte("A=local\n"), 0o644))

	p, err := Parse([]byte(`
services:
  web:
    env_file:
      - base.env
      - local.env
      - missing.env
    environment:
      B: inline
      C: inline
`), Options{Dir: dir, LookupEnv: noEnv})
	require.NoError(t, err)

	svc := p.Services[0]
	assert.Equal(t, []string{"base.env", "local.env", "missing.env"}, svc.EnvFiles)
	assert.Equal(t, []string{"A=local", "B=inline", "C=inline"}, svc.Environment)
}

func TestEnvFileString(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".web.env"), []byte("K=v\n"), 0o644))

	p, err := Parse([]byte("services:\n  web:\n    env_file: .web.env\n"), Options{Dir: dir, LookupEnv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, []string{"K=v"}, p.Services[0].Environment)
}

func TestVolumes(t *testing.T) {
	p := parse(t, `
services:
  web:
    volumes:
      - ./html:/usr/share/nginx/html
      - ./conf:/etc/nginx/conf.d:ro
      - data:/var/lib/data
      - /cache
      - type: bind
        source: ./logs
        target: /var/log/nginx
        read_only: true
      - type: tmpfs
        target: /tmp
`)
	assert.Equal(t, []model.BindMount{
		{Source: "./html", Target: "/usr/share/nginx/html", Mode: "rw"},
		{Source: "./conf", Target: "/etc/nginx/conf.d", Mode: "ro"},
		{Source: "data", Target: "/var/lib/data", Mode: "rw"},
		{Source: "", Target: "/cache", Mode: "rw"},
		{Source: "./logs", Target: "/var/log/nginx", Mode: "ro"},
		{Source: "", Target: "/tmp", Mode: "rw"},
	}, p.Services[0].Volumes)
}

func TestVolumeTargetMustBeAbsolute(t *testing.T) {
	_, err := Parse([]byte("services:\n  web:\n    volumes: [\"./a:relative\"]\n"), Options{LookupEnv: noEnv})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "services.web.volumes[0]", ve.Field)
}

func TestCommandAndEntrypoint(t *testing.T) {
	p := parse(t, `
services:
  a:
    command: ["npm", "run", "start"]
    entrypoint: /docker-entrypoint.sh
  b:
    command: npm run start
`)
	assert.Equal(t, "npm run start", p.Services[0].Command)
	assert.Equal(t, "/docker-entrypoint.sh", p.Services[0].Entrypoint)
	assert.Equal(t, "npm run start", p.Services[1].Command)
}

func TestDependsOn(t *testing.T) {
	p := parse(t, `
services:
  a:
    depends_on: [db, cache]
  b:
    depends_on:
      redis:
        condition: service_started
      db:
        condition: service_healthy
`)
	assert.Equal(t, []string{"db", "cache"}, p.Services[0].DependsOn)
	assert.Equal(t, []string{"redis", "db"}, p.Services[1].DependsOn)
}

func TestHealthCheck(t *testing.T) {
	p := parse(t, `
services:
  defaults:
    healthcheck:
      test: ["CMD", "curl", "-f", "http://localhost"]
  custom:
    healthcheck:
      test: curl -f http://localhost
      test_url: http://localhost/health
      interval: 10
      timeout: 3s
      retries: 2
  off:
    healthcheck:
      disable: true
      test: ["CMD", "true"]
      retries: 9
  none:
    healthcheck:
      test: ["NONE"]
  missing:
    image: busybox
`)
	def := p.Services[0].HealthCheck
	require.NotNil(t, def)
	assert.Equal(t, []string{"CMD", "curl", "-f", "http://localhost"}, def.Test)
	assert.Equal(t, "90s", def.StartPeriod)
	assert.Equal(t, "30s", def.Interval)
	assert.Equal(t, "10s", def.Timeout)
	assert.Equal(t, 5, def.Retries)

	custom := p.Services[1].HealthCheck
	require.NotNil(t, custom)
	assert.Equal(t, []string{"curl -f http://localhost"}, custom.Test)
	assert.Equal(t, "http://localhost/health", custom.TestURL)
	assert.Equal(t, "10s", custom.Interval)
	assert.Equal(t, "3s", custom.Timeout)
	assert.Equal(t, 2, custom.Retries)

	assert.Equal(t, model.DisabledHealthCheck(), p.Services[2].HealthCheck)
	assert.Equal(t, model.DisabledHealthCheck(), p.Services[3].HealthCheck)
	assert.Nil(t, p.Services[4].HealthCheck)
}

func TestBuild(t *testing.T) {
	p := parse(t, `
services:
  a:
    build: ./app
  b:
    build:
      context: ./svc
      dockerfile: Dockerfile.prod
  c:
    build: {}
`)
	assert.Equal(t, &model.BuildConfig{Context: "./app"}, p.Services[0].Build)
	assert.Equal(t, &model.BuildConfig{Context: "./svc", Dockerfile: "Dockerfile.prod"}, p.Services[1].Build)
	assert.Equal(t, &model.BuildConfig{Context: "."}, p.Services[2].Build)
}

func TestNullService(t *testing.T) {
	p := parse(t, "services:\n  empty:\n")
	require.Len(t, p.Services, 1)
	assert.Equal(t, "empty", p.Services[0].Name)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "docker-compose.yml")
	override := filepath.Join(dir, "docker-compose.override.yml")
	require.NoError(t, os.WriteFile(base, []byte("services:\n  web:\n    image: nginx:1\n  db:\n    image: postgres\n"), 0o644))
	require.NoError(t, os.WriteFile(override, []byte("services:\n  web:\n    image: nginx:2\n  worker:\n    image: busybox\n"), 0o644))

	p, err := LoadFiles([]string{base, override}, Options{LookupEnv: noEnv})
	require.NoError(t, err)
	assert.Equal(t, dir, p.Dir)
	assert.Equal(t, []string{"web", "db", "worker"}, p.Names())
	assert.Equal(t, "nginx:2", p.Services[0].Image)
}

func TestLoadFilesMissing(t *testing.T) {
	_, err := LoadFiles([]string{filepath.Join(t.TempDir(), "nope.yml")}, Options{})
	var ioErr *model.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read", ioErr.Op)
}

func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	_, ok := FindFile(dir)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "compose.yaml"), []byte("services: {}"), 0o644))
	p, ok := FindFile(dir)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "compose.yaml"), p)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	env, err := LoadDotEnv(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Empty(t, env)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9090\n# comment\nNAME=demo\n"), 0o644))
	env, err = LoadDotEnv(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"PORT": "9090", "NAME": "demo"}, env)
}
