package scratch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

func TestWithProvidesContent(t *testing.T) {
	dir := t.TempDir()
	var seen string

	err := With(dir, "", []byte("digraph{a->b}"), func(path string) error {
		seen = path
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "digraph{a->b}", string(data))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(seen))
	assert.True(t, strings.HasPrefix(filepath.Base(seen), "aidiagram-"))
	assert.True(t, strings.HasSuffix(seen, ".dot"))
	assert.NoFileExists(t, seen)
}

func TestWithRemovesOnConsumerError(t *testing.T) {
	var seen string
	boom := errors.New("engine failed")

	err := With(t.TempDir(), "", []byte("x"), func(path string) error {
		seen = path
		return boom
	})

	assert.Same(t, boom, err)
	assert.NoFileExists(t, seen)
}

func TestWithRemovesOnPanic(t *testing.T) {
	var seen string

	assert.Panics(t, func() {
		_ = With(t.TempDir(), "", []byte("x"), func(path string) error {
			seen = path
			panic("consumer blew up")
		})
	})

	require.NotEmpty(t, seen)
	assert.NoFileExists(t, seen)
}

func TestWithConsumerMayRemoveFile(t *testing.T) {
	err := With(t.TempDir(), "", []byte("x"), func(path string) error {
		return os.Remove(path)
	})
	assert.NoError(t, err)
}

func TestWithAllocationFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does", "not", "exist")
	called := false

	err := With(missing, "", []byte("x"), func(string) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, aerrors.Is(err, aerrors.ErrCodeResource))
	assert.False(t, called, "consumer must not run when allocation fails")
}

func TestWithUniqueNames(t *testing.T) {
	dir := t.TempDir()
	const n = 16

	var mu sync.Mutex
	paths := make(map[string]bool)
	var wg sync.WaitGroup

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = With(dir, "", []byte("x"), func(path string) error {
				mu.Lock()
				paths[path] = true
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, paths, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no scratch file may outlive its call")
}

func TestWithCustomPattern(t *testing.T) {
	err := With(t.TempDir(), "block-*.gv", []byte("x"), func(path string) error {
		assert.True(t, strings.HasSuffix(path, ".gv"))
		return nil
	})
	assert.NoError(t, err)
}
