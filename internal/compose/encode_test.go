package compose

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/compose-combine/internal/model"
)

func TestEncode_BlockStyleAndIndent(t *testing.T) {
	agg := NewAggregator()
	src := model.ComposeSource{Path: "svcA/docker-compose.yml", Dir: "svcA", Token: "svcA"}
	require.NoError(t, agg.Add(src, mustParse(t, src.Path,
		"services: {web: {image: nginx, volumes: [\"./data:/app/data\"]}}\nnetworks: {front: {driver: bridge}}\n")))

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, agg.Document()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "version: \"3.4\"\n"), out)
	assert.Contains(t, out, "\nservices:\n  svcA_web:\n    image: nginx\n")
	assert.Contains(t, out, "\nnetworks:\n  svcA_front:\n    driver: bridge\n")
	assert.NotContains(t, out, "{")
	assert.NotContains(t, out, "[")
}

// TestEncode_SectionOrder checks that the top-level keys are always
// written as version, services, volumes, networks.
func TestEncode_SectionOrder(t *testing.T) {
	agg := NewAggregator()
	src := model.ComposeSource{Path: "a/docker-compose.yml", Dir: "a", Token: "a"}
	require.NoError(t, agg.Add(src, mustParse(t, src.Path,
		"networks:\n  n: {}\nvolumes:\n  v: {}\nservices:\n  s: {}\n")))

	data, err := Marshal(agg.Document())
	require.NoError(t, err)
	out := string(data)

	iVersion := strings.Index(out, "version:")
	iServices := strings.Index(out, "\nservices:")
	iVolumes := strings.Index(out, "\nvolumes:")
	iNetworks := strings.Index(out, "\nnetworks:")
	require.True(t, iVersion >= 0 && iServices > 0 && iVolumes > 0 && iNetworks > 0, out)
	assert.Less(t, iVersion, iServices)
	assert.Less(t, iServices, iVolumes)
	assert.Less(t, iVolumes, iNetworks)
}

// TestEncode_NoAnchors verifies that a document using anchors in its
// source is written without anchors or aliases.
func TestEncode_NoAnchors(t *testing.T) {
	agg := NewAggregator()
	src := model.ComposeSource{Path: "a/docker-compose.yml", Dir: "a", Token: "a"}
	require.NoError(t, agg.Add(src, mustParse(t, src.Path, `
services:
  web:
    environment: &env
      MODE: prod
  worker:
    environment: *env
`)))

	data, err := Marshal(agg.Document())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "&")
	assert.NotContains(t, string(data), "*")
	assert.Equal(t, 2, strings.Count(string(data), "MODE: prod"))
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "docker-compose.yml")

	require.NoError(t, WriteOutput(path, []byte("version: \"3.4\"\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: \"3.4\"\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm()&0o644)
}

func TestWriteOutput_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docker-compose.yml")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer\n"), 0o644))

	require.NoError(t, WriteOutput(path, []byte("new\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestWriteOutput_Unwritable(t *testing.T) {
	dir := t.TempDir()
	// A regular file where a parent directory is expected.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	path := filepath.Join(blocker, "docker-compose.yml")

	err := WriteOutput(path, []byte("x"))
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)
}
