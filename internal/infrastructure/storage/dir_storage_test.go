package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RWTH-IAEW/cimpyorm/internal/infrastructure/serializer"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "EQ.xml", Key("", "EQ.xml"))
	assert.Equal(t, "EQ.xml", Key("/", "EQ.xml"))
	assert.Equal(t, "exports/grid/EQ.xml", Key("/exports/grid/", "EQ.xml"))
}

func TestDirStorage(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "out")

	d, err := NewDirStorage(root)
	require.NoError(t, err)

	require.NoError(t, d.Upload(ctx, "grid/EQ.xml", []byte("<eq/>"), ContentTypeXML))
	data, err := os.ReadFile(filepath.Join(root, "grid", "EQ.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<eq/>", string(data))

	exists, err := d.ObjectExists(ctx, "grid/EQ.xml")
	require.NoError(t, err)
	assert.True(t, exists)

	loc, err := d.Location(ctx, "grid/EQ.xml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "grid", "EQ.xml"), loc)

	require.NoError(t, d.DeleteObject(ctx, "grid/EQ.xml"))
	require.NoError(t, d.DeleteObject(ctx, "grid/EQ.xml"))
	exists, err = d.ObjectExists(ctx, "grid/EQ.xml")
	require.NoError(t, err)
	assert.False(t, exists)

	t.Run("rejects keys outside the root", func(t *testing.T) {
		err := d.Upload(ctx, "../escape.xml", nil, ContentTypeXML)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "escapes")
	})

	t.Run("requires a directory", func(t *testing.T) {
		_, err := NewDirStorage("")
		assert.Error(t, err)
	})
}

func TestStoreToDirectory(t *testing.T) {
	root := t.TempDir()
	d, err := NewDirStorage(root)
	require.NoError(t, err)

	docs := []serializer.Document{
		{Name: "EQ", Data: []byte("<eq/>")},
		{Name: "SSH", Data: []byte("<ssh/>")},
	}
	locations, err := Store(context.Background(), d, "", docs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "EQ.xml"), filepath.Join(root, "SSH.xml")}, locations)
}
