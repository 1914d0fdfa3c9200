package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/prd/internal/models"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feature.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func captureUI(t *testing.T) *bytes.Buffer {
	t.Helper()
	out := &bytes.Buffer{}
	ui.Out = out
	ui.ErrOut = &bytes.Buffer{}
	return out
}

func TestReviewRun_Mock(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	reviewMock = true
	reviewJSON = false
	reviewAgents = ""
	t.Cleanup(func() { reviewMock = false })

	path := writeDoc(t, "Login feature.\nUsers can reset passwords via email.")
	err := reviewRun(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Review complete")
}

func TestReviewRun_JSON(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	reviewMock = true
	reviewJSON = true
	reviewAgents = ""
	t.Cleanup(func() {
		reviewMock = false
		reviewJSON = false
	})

	path := writeDoc(t, "Checkout flow.\nCarts persist for 30 days.")
	err := reviewRun(context.Background(), path)
	require.NoError(t, err)

	var issues []models.FinalIssue
	require.NoError(t, json.Unmarshal(out.Bytes(), &issues))
	require.NotEmpty(t, issues)
	assert.Equal(t, 1, issues[0].Priority)
}

func TestReviewRun_MissingFile(t *testing.T) {
	testEnv(t)
	captureUI(t)

	reviewMock = true
	t.Cleanup(func() { reviewMock = false })

	err := reviewRun(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read document")
}

func TestReviewRun_UnknownAgent(t *testing.T) {
	testEnv(t)
	captureUI(t)

	reviewMock = true
	reviewAgents = "chef_specialist"
	t.Cleanup(func() {
		reviewMock = false
		reviewAgents = ""
	})

	path := writeDoc(t, "doc")
	err := reviewRun(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")
}
