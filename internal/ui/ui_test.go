package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sikenali/DTOLPK/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	verr := &model.ValidationError{Field: "services.web.ports[0]", Message: "invalid port", Suggestion: "use host:container"}
	out := Describe("conversion failed", fmt.Errorf("loading: %w", verr))
	assert.Contains(t, out, "conversion failed")
	assert.Contains(t, out, "services.web.ports[0]: invalid port")
	assert.Contains(t, out, "use host:container")

	out = Describe("conversion failed", errors.New("boom"))
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "Hint")
}

func TestSize(t *testing.T) {
	assert.Equal(t, "0 B", Size(-1))
	assert.Equal(t, "1.5 kB", Size(1500))
	assert.Equal(t, "2.0 MB", Size(2_000_000))
}

func TestStepLine(t *testing.T) {
	assert.Contains(t, stepLine("package", "3 content entries"), "package")
	assert.Contains(t, stepLine("package", "3 content entries"), "3 content entries")
	assert.Contains(t, stepLine("compose", ""), "OK")
}
