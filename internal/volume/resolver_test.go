package volume

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sikenali/DTOLPK/internal/decide"
	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedDecider answers by question kind and records what it was asked.
type scriptedDecider struct {
	answers map[decide.Kind]string
	asked   []decide.Question
}

func (s *scriptedDecider) Decide(_ context.Context, q decide.Question) (string, error) {
	s.asked = append(s.asked, q)
	if a, ok := s.answers[q.Kind]; ok {
		return a, nil
	}
	return q.Default, nil
}

type fakeFileInfo struct {
	name  string
	isDir bool
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.isDir }
func (f fakeFileInfo) Sys() interface{}   { return nil }

type mockDetector struct {
	paths map[string]bool
}

func (m *mockDetector) Stat(path string) (os.FileInfo, error) {
	if m.paths[path] {
		return fakeFileInfo{name: filepath.Base(path), isDir: true}, nil
	}
	return nil, os.ErrNotExist
}

func newResolver(t *testing.T, answers map[decide.Kind]string) (*Resolver, *scriptedDecider, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "html"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nginx.conf"), []byte("events {}"), 0o644))
	d := &scriptedDecider{answers: answers}
	return &Resolver{Layout: model.DefaultLayout(), Dir: dir, Decider: d}, d, dir
}

func TestResolveSandboxPassthrough(t *testing.T) {
	r, d, _ := newResolver(t, nil)
	bind, ok, err := r.Resolve(context.Background(), "web", model.BindMount{Source: "/lzcapp/var/x/data", Target: "/data"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/var/x/data:/data", bind)
	assert.Empty(t, d.asked)
}

func TestResolveExistingContent(t *testing.T) {
	r, d, _ := newResolver(t, nil)
	ctx := context.Background()

	bind, ok, err := r.Resolve(ctx, "web", model.BindMount{Source: "./html", Target: "/usr/share/nginx/html"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/pkg/content/html:/usr/share/nginx/html", bind)

	bind, _, err = r.Resolve(ctx, "web", model.BindMount{Source: "nginx.conf/", Target: "/etc/nginx/nginx.conf"})
	require.NoError(t, err)
	assert.Equal(t, "/lzcapp/pkg/content/nginx.conf:/etc/nginx/nginx.conf", bind)

	bind, _, err = r.Resolve(ctx, "web", model.BindMount{Source: ".", Target: "/app"})
	require.NoError(t, err)
	assert.Equal(t, "/lzcapp/pkg/content:/app", bind)

	require.Len(t, d.asked, 3)
	q := d.asked[0]
	assert.Equal(t, decide.KindVolumeAction, q.Kind)
	assert.Equal(t, decide.CaseExisting, q.Case)
	assert.Equal(t, "volume_web_/usr/share/nginx/html", q.Key)
	assert.Equal(t, decide.ActionContent, q.Default)
	assert.True(t, q.Allows(decide.ActionHome))
	assert.False(t, q.Allows(decide.ActionData))
}

func TestResolveUnmanaged(t *testing.T) {
	tests := []struct {
		name   string
		mount  model.BindMount
		answer string
		want   string
		ok     bool
	}{
		{"anonymous data", model.BindMount{Target: "/var/lib/mysql"}, decide.ActionData, "/lzcapp/var/mysql:/var/lib/mysql", true},
		{"named data", model.BindMount{Source: "db_data", Target: "/var/lib/postgresql/data"}, decide.ActionData, "/lzcapp/var/data:/var/lib/postgresql/data", true},
		{"anonymous skip", model.BindMount{Target: "/cache"}, decide.ActionSkip, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, d, _ := newResolver(t, map[decide.Kind]string{decide.KindVolumeAction: tt.answer})
			bind, ok, err := r.Resolve(context.Background(), "db", tt.mount)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, bind)
			require.Len(t, d.asked, 1)
			assert.Equal(t, decide.CaseUnmanaged, d.asked[0].Case)
		})
	}
}

func TestResolveHome(t *testing.T) {
	r, d, _ := newResolver(t, map[decide.Kind]string{
		decide.KindVolumeAction: decide.ActionHome,
		decide.KindHomeSubdir:   "Music",
	})
	bind, ok, err := r.Resolve(context.Background(), "jellyfin", model.BindMount{Source: "/mnt/media", Target: "/media"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/run/mnt/home/Music:/media", bind)
	require.Len(t, d.asked, 2)
	assert.Equal(t, decide.CaseOther, d.asked[0].Case)
	assert.Equal(t, decide.KindHomeSubdir, d.asked[1].Kind)
}

func TestResolveHomeDefaultsToTargetName(t *testing.T) {
	r := &Resolver{
		Layout:  model.DefaultLayout(),
		Dir:     t.TempDir(),
		Decider: &decide.Policy{Volumes: decide.VolumePolicy{Other: decide.ActionHome}},
	}
	bind, ok, err := r.Resolve(context.Background(), "jellyfin", model.BindMount{Source: "/mnt/media", Target: "/config/Photos"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/run/mnt/home/Photos:/config/Photos", bind)
}

func TestResolveHomeRejectsSeparators(t *testing.T) {
	r, _, _ := newResolver(t, map[decide.Kind]string{
		decide.KindVolumeAction: decide.ActionHome,
		decide.KindHomeSubdir:   "a/b",
	})
	_, _, err := r.Resolve(context.Background(), "web", model.BindMount{Target: "/data"})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolveClassifyDefault(t *testing.T) {
	r, _, _ := newResolver(t, nil)
	ctx := context.Background()

	tests := []struct {
		source string
		want   string
	}{
		{"/etc/myapp/config", "/lzcapp/var/web/config:/target"},
		{"/var/log/myapp", "/lzcapp/var/web/logs:/target"},
		{"/srv/Data", "/lzcapp/var/web/data:/target"},
		{"./missing/uploads", "/lzcapp/var/web/uploads:/target"},
		{"../outside", "/lzcapp/var/web/outside:/target"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			bind, ok, err := r.Resolve(ctx, "web", model.BindMount{Source: tt.source, Target: "/target"})
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, bind)
		})
	}
}

func TestResolveWithDetector(t *testing.T) {
	d := &scriptedDecider{}
	r := &Resolver{
		Layout:   model.DefaultLayout(),
		Dir:      "/project",
		Decider:  d,
		Detector: &mockDetector{paths: map[string]bool{"/project/static": true}},
	}
	bind, ok, err := r.Resolve(context.Background(), "web", model.BindMount{Source: "./static", Target: "/srv"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/pkg/content/static:/srv", bind)
}

func TestResolveRelativeTarget(t *testing.T) {
	r, _, _ := newResolver(t, nil)
	_, _, err := r.Resolve(context.Background(), "web", model.BindMount{Source: "./html", Target: "html"})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestResolveWithPolicy(t *testing.T) {
	dir := t.TempDir()
	r := &Resolver{
		Layout: model.DefaultLayout(),
		Dir:    dir,
		Decider: &decide.Policy{Volumes: decide.VolumePolicy{
			Unmanaged: decide.ActionSkip,
			Overrides: map[string]string{"db:/var/lib/mysql": decide.ActionData},
		}},
	}
	ctx := context.Background()

	_, ok, err := r.Resolve(ctx, "db", model.BindMount{Target: "/tmp/cache"})
	require.NoError(t, err)
	assert.False(t, ok)

	bind, ok, err := r.Resolve(ctx, "db", model.BindMount{Target: "/var/lib/mysql"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/lzcapp/var/mysql:/var/lib/mysql", bind)
}

func TestIsNamedVolume(t *testing.T) {
	for s, want := range map[string]bool{
		"db_data":   true,
		"my.vol-1":  true,
		"":          false,
		"./data":    false,
		".hidden":   false,
		"/abs/path": false,
		"~/data":    false,
		"a/b":       false,
	} {
		assert.Equal(t, want, IsNamedVolume(s), s)
	}
}

func TestValidateSubdir(t *testing.T) {
	assert.NoError(t, ValidateSubdir("Documents"))
	for _, bad := range []string{"", "  ", "a/b", `a\b`, ".."} {
		assert.Error(t, ValidateSubdir(bad), bad)
	}
}
