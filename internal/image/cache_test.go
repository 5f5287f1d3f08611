package image

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	asm := &Assembly{Name: name, Version: "1.0"}
	path := filepath.Join(dir, name+FileExtension)
	_, err := WriteFile(path, asm)
	require.NoError(t, err)
	return path
}

func TestCacheLoadMemoizes(t *testing.T) {
	dir := t.TempDir()
	path := writeImage(t, dir, "app")

	cache := NewCache()
	first, err := cache.Load(path)
	require.NoError(t, err)

	// A second load of the same file, even through an uncleaned path,
	// returns the identical instance.
	second, err := cache.Load(filepath.Join(dir, ".", "app"+FileExtension))
	require.NoError(t, err)
	assert.Same(t, first, second)

	byName, ok := cache.ByName("app")
	require.True(t, ok)
	assert.Same(t, first, byName)
}

func TestCachePut(t *testing.T) {
	cache := NewCache()
	asm := &Assembly{Name: "validation"}
	cache.Put(asm)

	got, err := cache.Resolve("validation")
	require.NoError(t, err)
	assert.Same(t, asm, got)
}

func TestCacheResolveWithoutResolver(t *testing.T) {
	cache := NewCache()
	_, err := cache.Resolve("missing")
	assert.ErrorContains(t, err, "no image resolver is installed")
}

func TestCacheResolverScope(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "dep")

	cache := NewCache()
	restore := cache.InstallResolver(func(name string) (string, bool) {
		return filepath.Join(dir, name+FileExtension), true
	})

	resolved, err := cache.Resolve("dep")
	require.NoError(t, err)
	assert.Equal(t, "dep", resolved.Name)

	// After restore the resolver is gone, but already-loaded images
	// remain resolvable by name.
	restore()
	again, err := cache.Resolve("dep")
	require.NoError(t, err)
	assert.Same(t, resolved, again)

	_, err = cache.Resolve("other")
	assert.Error(t, err)
}

func TestCacheResolverNotFound(t *testing.T) {
	cache := NewCache()
	restore := cache.InstallResolver(func(name string) (string, bool) { return "", false })
	defer restore()

	_, err := cache.Resolve("ghost")
	assert.ErrorContains(t, err, "could not be located")
}
