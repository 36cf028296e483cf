package lpk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func demoManifest() *model.Manifest {
	return &model.Manifest{
		SDKVersion: model.SDKVersion,
		Name:       "Demo",
		Package:    "com.example.demo",
		Version:    "1.0.0",
		Application: model.Application{
			Subdomain: "demo",
			Routes:    []string{"/=http://web.com.example.demo.lzcapp:80"},
		},
		Services: map[string]*model.ServiceManifest{
			"web": {Image: "nginx:latest", HealthCheck: &model.HealthCheckManifest{Disable: true}},
		},
	}
}

// project lays out a typical compose project.
func project(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), "services: {}\n")
	writeFile(t, filepath.Join(dir, "icon.png"), "\x89PNG fake")
	writeFile(t, filepath.Join(dir, "html", "index.html"), "<h1>hi</h1>")
	writeFile(t, filepath.Join(dir, "html", "css", "site.css"), "body{}")
	writeFile(t, filepath.Join(dir, "README.md"), "# demo")
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main")
	writeFile(t, filepath.Join(dir, "node_modules", "x", "index.js"), "")
	writeFile(t, filepath.Join(dir, "web", "node_modules", "y.js"), "")
	writeFile(t, filepath.Join(dir, "old.lpk"), "zip")
	writeFile(t, filepath.Join(dir, "content.tar"), "tar")
	writeFile(t, filepath.Join(dir, ".docker2lpk-cache.db"), "bolt")
	return dir
}

func assemble(t *testing.T, dir, out string) *Result {
	t.Helper()
	res, err := Assemble(context.Background(), Input{
		Manifest:     demoManifest(),
		IconPath:     filepath.Join(dir, "icon.png"),
		ContentDir:   dir,
		OutputDir:    out,
		ExcludeFiles: []string{filepath.Join(dir, "docker-compose.yml"), filepath.Join(dir, ".docker2lpk-cache.db")},
	})
	require.NoError(t, err)
	return res
}

func TestAssemble(t *testing.T) {
	dir := project(t)
	out := t.TempDir()

	res := assemble(t, dir, out)
	assert.Equal(t, filepath.Join(out, "com.example.demo.lpk"), res.Path)
	assert.Positive(t, res.Size)

	pkg, err := Inspect(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{"manifest.yml", "icon.png", "content.tar"}, pkg.Entries)
	assert.Equal(t, "\x89PNG fake", string(pkg.Icon))
	assert.Equal(t, "nginx:latest", pkg.Manifest.Services["web"].Image)
	assert.Equal(t, []string{
		"README.md",
		"html/",
		"html/css/",
		"html/css/site.css",
		"html/index.html",
		"web/",
	}, pkg.Content)
	assert.Equal(t, len(pkg.Content), res.ContentFiles)
}

func TestAssembleIsDeterministic(t *testing.T) {
	dir := project(t)
	first := assemble(t, dir, t.TempDir())
	second := assemble(t, dir, t.TempDir())

	a, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	b, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssembleIgnoreFile(t *testing.T) {
	dir := project(t)
	writeFile(t, filepath.Join(dir, IgnoreFile), "# local notes\n*.md\nhtml/css\n")

	res := assemble(t, dir, t.TempDir())
	pkg, err := Inspect(res.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{".lpkignore", "html/", "html/index.html", "web/"}, pkg.Content)
}

func TestAssembleIconOutsideContent(t *testing.T) {
	dir := project(t)
	icons := t.TempDir()
	writeFile(t, filepath.Join(icons, "logo.svg"), "<svg/>")

	res, err := Assemble(context.Background(), Input{
		Manifest:   demoManifest(),
		IconPath:   filepath.Join(icons, "logo.svg"),
		ContentDir: filepath.Join(dir, "html"),
		OutputDir:  t.TempDir(),
	})
	require.NoError(t, err)
	pkg, err := Inspect(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(pkg.Icon))
	assert.Equal(t, []string{"css/", "css/site.css", "index.html"}, pkg.Content)
}

func TestAssembleFailureLeavesNoOutput(t *testing.T) {
	dir := project(t)
	out := t.TempDir()

	_, err := Assemble(context.Background(), Input{
		Manifest:   demoManifest(),
		IconPath:   filepath.Join(dir, "missing.png"),
		ContentDir: dir,
		OutputDir:  out,
	})
	var ioErr *model.IOError
	require.ErrorAs(t, err, &ioErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Assemble(ctx, Input{
		Manifest:   demoManifest(),
		IconPath:   filepath.Join(dir, "icon.png"),
		ContentDir: dir,
		OutputDir:  out,
	})
	require.Error(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssembleReplacesExisting(t *testing.T) {
	dir := project(t)
	out := t.TempDir()
	writeFile(t, filepath.Join(out, "com.example.demo.lpk"), "stale")

	res := assemble(t, dir, out)
	pkg, err := Inspect(res.Path)
	require.NoError(t, err)
	assert.Len(t, pkg.Entries, 3)
}

func TestInspectRejectsNonPackage(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.lpk")
	writeFile(t, p, "not a zip")
	_, err := Inspect(p)
	var ioErr *model.IOError
	assert.ErrorAs(t, err, &ioErr)
}
