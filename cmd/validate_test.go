package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadComposeUsesDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(file, []byte(`services:
  web:
    image: nginx:${TAG:-latest}
    ports:
      - "8080:${WEB_PORT:-80}"
`), 0o644))

	p, err := loadCompose(dir, []string{file})
	require.NoError(t, err)
	require.Len(t, p.Services, 1)
	assert.Equal(t, 80, p.Services[0].Ports[0].ContainerPort)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WEB_PORT=8081\nTAG=1.27\n"), 0o644))
	p, err = loadCompose(dir, []string{file})
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", p.Services[0].Image)
	assert.Equal(t, 8081, p.Services[0].Ports[0].ContainerPort)
}
