package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider_FindOrCreate(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	_, found, err := p.FindFolder(ctx, "registration", "")
	require.NoError(t, err)
	assert.False(t, found)

	root, err := p.CreateFolder(ctx, "registration", "")
	require.NoError(t, err)

	dealer, err := p.CreateFolder(ctx, "D100_Acme Motors", root)
	require.NoError(t, err)

	id, found, err := p.FindFolder(ctx, "D100_Acme Motors", root)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, dealer, id)

	// no parent constraint matches anywhere in the tree
	id, found, err = p.FindFolder(ctx, "D100_Acme Motors", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, dealer, id)

	_, found, err = p.FindFolder(ctx, "D100_Acme Motors", "other-parent")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryProvider_UploadFile(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	_, err := p.UploadFile(ctx, strings.NewReader("a"), "Self_X_Passport.png", "image/png", "folder-1")
	require.NoError(t, err)
	_, err = p.UploadFile(ctx, strings.NewReader("b"), "Self_X_Passport.png", "image/png", "folder-1")
	require.NoError(t, err)

	// same-named files are kept side by side
	assert.Equal(t, []string{"Self_X_Passport.png", "Self_X_Passport.png"}, p.FilesIn("folder-1"))
	files := p.Files()
	require.Len(t, files, 2)
	assert.Equal(t, []byte("a"), files[0].Content)
	assert.NotEqual(t, files[0].ID, files[1].ID)
}

func TestMemoryProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewMemoryProvider()

	_, err := p.CreateFolder(ctx, "registration", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.Folders())
}
