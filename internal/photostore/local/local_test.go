package local

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalPhotoStore {
	t.Helper()
	store, err := NewLocalPhotoStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Save(ctx, "meal", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "meal_"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	rc, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, "image/png", mimeType)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestSaveUnknownMimeTypeDefaultsToJpeg(t *testing.T) {
	store := newTestStore(t)

	key, err := store.Save(context.Background(), "meal", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}

func TestPathPointsAtStoredFile(t *testing.T) {
	store := newTestStore(t)

	key, err := store.Save(context.Background(), "meal", "image/jpeg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)

	path, err := store.Path(key)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Get(context.Background(), "meal_nope.jpg")
	assert.ErrorContains(t, err, "photo not found")
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.Save(ctx, "meal", "image/jpeg", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, key))

	_, _, err = store.Get(ctx, key)
	assert.Error(t, err)
	assert.ErrorContains(t, store.Delete(ctx, key), "photo not found")
}

func TestRejectsPathTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"../outside.jpg", "../../etc/passwd", "a/../../b.jpg"} {
		_, _, err := store.Get(ctx, key)
		assert.ErrorContains(t, err, "path traversal", "key %q", key)

		_, err = store.Path(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestSaveGeneratesUniqueKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Save(ctx, "meal", "image/jpeg", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := store.Save(ctx, "meal", "image/jpeg", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
