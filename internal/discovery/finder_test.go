package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a file (and its parent directories) under root.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestFind_SkipsRootAndFindsNested verifies that a compose file directly in
// the root is ignored while files at any depth below it are returned with
// flattened tokens.
func TestFind_SkipsRootAndFindsNested(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docker-compose.yml", "services: {}\n")
	writeFile(t, root, "svcA/docker-compose.yml", "services: {}\n")
	writeFile(t, root, "backend/db/docker-compose.yml", "services: {}\n")
	writeFile(t, root, "svcB/compose.yaml", "services: {}\n")

	sources, err := NewFinder("docker-compose.yml").Find(root)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	// WalkDir visits "backend" before "svcA".
	assert.Equal(t, filepath.Join("backend", "db"), sources[0].Dir)
	assert.Equal(t, "backend_db", sources[0].Token)
	assert.Equal(t, filepath.Join(root, "backend", "db", "docker-compose.yml"), sources[0].Path)

	assert.Equal(t, "svcA", sources[1].Dir)
	assert.Equal(t, "svcA", sources[1].Token)
}

// TestFind_OrderIsStable runs discovery twice over the same tree and
// expects identical results.
func TestFind_OrderIsStable(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"zeta", "alpha", "mid/inner", "beta"} {
		writeFile(t, root, dir+"/docker-compose.yml", "services: {}\n")
	}

	finder := NewFinder("docker-compose.yml")
	first, err := finder.Find(root)
	require.NoError(t, err)
	second, err := finder.Find(root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	tokens := make([]string, 0, len(first))
	for _, s := range first {
		tokens = append(tokens, s.Token)
	}
	assert.Equal(t, []string{"alpha", "beta", "mid_inner", "zeta"}, tokens)
}

// TestFind_CustomFileName checks that only the exact configured name matches.
func TestFind_CustomFileName(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/compose.yaml", "services: {}\n")
	writeFile(t, root, "api/docker-compose.yml", "services: {}\n")
	writeFile(t, root, "web/Compose.yaml", "services: {}\n")

	sources, err := NewFinder("compose.yaml").Find(root)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "api", sources[0].Token)
}

// TestFind_ExcludesOutputFile verifies that the output of a previous run
// placed in a subdirectory is not picked up as an input.
func TestFind_ExcludesOutputFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/docker-compose.yml", "services: {}\n")
	output := writeFile(t, root, "dist/docker-compose.yml", "services: {}\n")

	sources, err := NewFinder("docker-compose.yml", output).Find(root)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "api", sources[0].Token)
}

// symlink creates a symbolic link or skips the test where links are not
// supported.
func symlink(t *testing.T, target, link string) {
	t.Helper()

	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

// TestFind_ExcludesOutputThroughSymlink verifies that the output file is
// recognized when it is named through a symlinked directory, both on a
// re-run (the file exists) and on the first run (it does not yet).
func TestFind_ExcludesOutputThroughSymlink(t *testing.T) {
	tests := []struct {
		name   string
		exists bool
	}{
		{"existing output", true},
		{"output not written yet", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeFile(t, root, "api/docker-compose.yml", "services: {}\n")
			require.NoError(t, os.MkdirAll(filepath.Join(root, "dist"), 0o755))
			link := filepath.Join(t.TempDir(), "out")
			symlink(t, filepath.Join(root, "dist"), link)

			output := filepath.Join(link, "docker-compose.yml")
			if tt.exists {
				require.NoError(t, os.WriteFile(output, []byte("services: {}\n"), 0o644))
			}
			// Written by the run itself when it did not exist beforehand.
			finder := NewFinder("docker-compose.yml", output)
			if !tt.exists {
				require.NoError(t, os.WriteFile(output, []byte("services: {}\n"), 0o644))
			}

			sources, err := finder.Find(root)
			require.NoError(t, err)
			require.Len(t, sources, 1)
			assert.Equal(t, "api", sources[0].Token)
		})
	}
}

// TestFind_ExcludesOutputUnderSymlinkedRoot covers a root that is itself
// reached through a symlink while the output is named by its real path.
func TestFind_ExcludesOutputUnderSymlinkedRoot(t *testing.T) {
	target := t.TempDir()
	writeFile(t, target, "api/docker-compose.yml", "services: {}\n")
	output := writeFile(t, target, "dist/docker-compose.yml", "services: {}\n")
	root := filepath.Join(t.TempDir(), "root")
	symlink(t, target, root)

	sources, err := NewFinder("docker-compose.yml", output).Find(root)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "api", sources[0].Token)
	assert.Equal(t, filepath.Join(root, "api", "docker-compose.yml"), sources[0].Path)
}

// TestFind_EmptyTree returns no sources and no error.
func TestFind_EmptyTree(t *testing.T) {
	sources, err := NewFinder("docker-compose.yml").Find(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, sources)
}

// TestFind_MissingRoot reports an error instead of an empty result.
func TestFind_MissingRoot(t *testing.T) {
	_, err := NewFinder("docker-compose.yml").Find(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

// TestDirectoryToken verifies separator flattening.
func TestDirectoryToken(t *testing.T) {
	tests := []struct {
		rel      string
		expected string
	}{
		{"api", "api"},
		{filepath.Join("backend", "db"), "backend_db"},
		{filepath.Join("a", "b", "c"), "a_b_c"},
		{"already_flat", "already_flat"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, DirectoryToken(tt.rel))
		})
	}
}
