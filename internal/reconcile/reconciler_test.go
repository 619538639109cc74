package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/assetkeeper/internal/fsys"
	"github.com/harrison/assetkeeper/internal/models"
)

func tree(t *testing.T, files ...string) *fsys.FS {
	t.Helper()
	fs := fsys.NewMemory()
	for _, f := range files {
		require.NoError(t, fsys.WriteFile(fs, f, []byte("data:"+f)))
	}
	return fs
}

func refs(doc string, textures ...string) *models.ReferenceSet {
	rs := models.NewReferenceSet(doc)
	for _, p := range textures {
		cat, _ := models.CategoryOf(p)
		rs.Add(cat, p)
	}
	return rs
}

func TestReconcileClassifiesFiles(t *testing.T) {
	fs := tree(t,
		"/proj/house.max",
		"/proj/textures/wood.jpg",
		"/proj/textures/noise.tga",
		"/proj/proxies/tree.vrmesh",
		"/proj/lamp.ies",
		"/proj/readme.txt",
		"/proj/unused/old.png",
		"/proj/textures/unused/stale.png",
	)
	sets := []*models.ReferenceSet{
		refs("/proj/house.max", "C:/Old/Maps/Wood.JPG", "D:/cache/tree.vrmesh", "E:/gone/brick.png"),
	}

	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj", sets)
	require.NoError(t, err)

	assert.Equal(t, []string{"/proj/house.max"}, result.Documents)
	assert.Equal(t, []string{"/proj/proxies/tree.vrmesh", "/proj/textures/wood.jpg"}, result.Linked.Items())
	assert.Equal(t, []string{"/proj/lamp.ies", "/proj/textures/noise.tga"}, result.Unused.Items())
	assert.Equal(t, []string{"E:/gone/brick.png"}, result.Missing.Items())
	assert.Len(t, result.Files, 4, "unused staging folders and unsupported files are skipped")

	wood := result.Files["/proj/textures/wood.jpg"]
	require.NotNil(t, wood)
	assert.True(t, wood.IsUsed)
	assert.Equal(t, "textures", wood.Folder)
	assert.Equal(t, models.CategoryTexture, wood.Category)
	assert.Equal(t, []string{"C:/Old/Maps/Wood.JPG"}, wood.References)

	lamp := result.Files["/proj/lamp.ies"]
	require.NotNil(t, lamp)
	assert.Equal(t, models.RootFolderLabel, lamp.Folder)

	assert.Equal(t, models.FolderStats{Total: 2, Used: 1, Unused: 1, Textures: 2}, *result.FolderStats["textures"])
	assert.Equal(t, models.FolderStats{Total: 1, Used: 1, Proxies: 1}, *result.FolderStats["proxies"])
}

func TestReconcileCaseInsensitiveMatch(t *testing.T) {
	fs := tree(t, "/proj/maps/wood.jpg")
	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj",
		[]*models.ReferenceSet{refs("/proj/a.max", "X:/Textures/Wood.JPG")})
	require.NoError(t, err)

	assert.True(t, result.Linked.Contains("/proj/maps/wood.jpg"))
	assert.Equal(t, 0, result.Missing.Len())
}

func TestReconcileDuplicateNamesShareReferences(t *testing.T) {
	fs := tree(t, "/proj/subA/tex.png", "/proj/subB/tex.png")
	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj",
		[]*models.ReferenceSet{
			refs("/proj/a.max", "C:/one/tex.png"),
			refs("/proj/b.max", "D:/two/TEX.png"),
		})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Linked.Len())
	for _, rec := range result.LinkedRecords() {
		assert.ElementsMatch(t, []string{"C:/one/tex.png", "D:/two/TEX.png"}, rec.References)
	}
}

func TestReconcileMissingHonorsLiteralPath(t *testing.T) {
	fs := tree(t, "/library/shared/brick.png", "/proj/wood.jpg")
	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj",
		[]*models.ReferenceSet{refs("/proj/a.max", "/library/shared/brick.png", "C:/nowhere/brick2.png")})
	require.NoError(t, err)

	assert.Equal(t, []string{"C:/nowhere/brick2.png"}, result.Missing.Items())
	assert.True(t, result.Unused.Contains("/proj/wood.jpg"))
}

func TestReconcileIsIdempotent(t *testing.T) {
	fs := tree(t, "/proj/a/wood.jpg", "/proj/b/noise.tga")
	sets := []*models.ReferenceSet{refs("/proj/s.max", "C:/wood.jpg", "C:/missing.png")}
	r := New(fs, "unused")

	first, err := r.Reconcile(context.Background(), "/proj", sets)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), "/proj", sets)
	require.NoError(t, err)

	assert.Equal(t, first.Linked.Items(), second.Linked.Items())
	assert.Equal(t, first.Unused.Items(), second.Unused.Items())
	assert.Equal(t, first.Missing.Items(), second.Missing.Items())
}

func TestReconcileCarriesScanErrors(t *testing.T) {
	fs := tree(t, "/proj/a.png")
	bad := refs("/proj/broken.max")
	bad.AddError("scan /proj/broken.max: format: not an OLE compound file")

	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj", []*models.ReferenceSet{bad})
	require.NoError(t, err)
	assert.Equal(t, bad.Errors, result.Errors)
}

func TestReconcileFailures(t *testing.T) {
	fs := tree(t, "/proj/a.png")

	_, err := New(fs, "unused").Reconcile(context.Background(), "/missing", nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(fs, "unused").Reconcile(ctx, "/proj", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcileKeepsCaseVariantFiles(t *testing.T) {
	fs := tree(t, "/proj/a/Noise.tga", "/proj/a/noise.tga", "/proj/b/Wood.jpg", "/proj/b/wood.jpg")
	sets := []*models.ReferenceSet{refs("/proj/house.max", "C:/maps/wood.jpg")}

	result, err := New(fs, "unused").Reconcile(context.Background(), "/proj", sets)
	require.NoError(t, err)

	assert.Len(t, result.Files, 4)
	assert.Equal(t, []string{"/proj/a/Noise.tga", "/proj/a/noise.tga"}, result.Unused.Items())
	assert.Equal(t, []string{"/proj/b/Wood.jpg", "/proj/b/wood.jpg"}, result.Linked.Items())
	assert.Equal(t, 2, result.FolderStats["a"].Unused)
	assert.Len(t, result.UnusedRecords(), 2)
}
