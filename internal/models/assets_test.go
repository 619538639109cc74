package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		path string
		want Category
		ok   bool
	}{
		{"C:/maps/wood.JPG", CategoryTexture, true},
		{"wood.tx", CategoryTexture, true},
		{"tree.vrmesh", CategoryProxy, true},
		{"cache.abc", CategoryProxy, true},
		{"light.ies", CategoryOther, true},
		{".vismat", CategoryOther, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := CategoryOf(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSupportedExtensionsSorted(t *testing.T) {
	exts := SupportedExtensions()
	assert.Len(t, exts, len(TextureExtensions)+len(ProxyExtensions)+len(OtherExtensions))
	assert.IsIncreasing(t, exts)
}

func TestPathSetCaseInsensitive(t *testing.T) {
	s := NewPathSet()
	assert.True(t, s.Add("C:/Maps/Wood.JPG"))
	assert.False(t, s.Add("c:/maps/wood.jpg"))
	assert.True(t, s.Contains("C:/MAPS/WOOD.jpg"))
	assert.Equal(t, []string{"C:/Maps/Wood.JPG"}, s.Items())

	var nilSet *PathSet
	assert.Equal(t, 0, nilSet.Len())
	assert.False(t, nilSet.Contains("x"))
}

func TestPathSetJSON(t *testing.T) {
	s := NewPathSet("b.png", "A.png")
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["A.png","b.png"]`, string(data))

	var back PathSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Contains("a.PNG"))
	assert.Equal(t, 2, back.Len())
}

func TestReferenceSetAll(t *testing.T) {
	rs := NewReferenceSet("/p/scene.max")
	rs.Add(CategoryTexture, "/p/wood.jpg")
	rs.Add(CategoryProxy, "/p/tree.vrmesh")
	rs.Add(CategoryOther, "/p/lamp.ies")
	rs.Add(CategoryTexture, "/P/WOOD.jpg")

	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, []string{"/p/lamp.ies", "/p/tree.vrmesh", "/p/wood.jpg"}, rs.All())
}

func TestReconciliationResultViews(t *testing.T) {
	r := NewReconciliationResult("/p")
	r.AddFile(&FileRecord{Path: "/p/a/wood.jpg", Name: "wood.jpg", Folder: "a", Category: CategoryTexture, IsUsed: true})
	r.AddFile(&FileRecord{Path: "/p/a/noise.tga", Name: "noise.tga", Folder: "a", Category: CategoryTexture})
	r.AddFile(&FileRecord{Path: "/p/tree.abc", Name: "tree.abc", Folder: RootFolderLabel, Category: CategoryProxy})

	assert.Len(t, r.LinkedRecords(), 1)
	assert.Len(t, r.UnusedRecords(), 2)

	byFolder := r.UnusedByFolder()
	assert.Len(t, byFolder["a"], 1)
	assert.Len(t, byFolder[RootFolderLabel], 1)

	stats := r.FolderStats["a"]
	require.NotNil(t, stats)
	assert.Equal(t, FolderStats{Total: 2, Used: 1, Unused: 1, Textures: 2}, *stats)
	assert.Len(t, r.FilesByCategory(CategoryTexture), 2)
	assert.Equal(t, []string{RootFolderLabel, "a"}, r.Folders())
}

func TestOrganizeResultCounters(t *testing.T) {
	r := &OrganizeResult{}
	r.Record(&FileOperation{Action: ActionMove, Success: true})
	r.Record(&FileOperation{Action: ActionCopy, Success: true})
	r.Record(&FileOperation{Action: ActionDelete, Success: true})
	failed := &FileOperation{Action: ActionMove}
	failed.Fail(fs.ErrPermission)
	r.Record(failed)

	assert.Equal(t, 1, r.Moved)
	assert.Equal(t, 1, r.Copied)
	assert.Equal(t, 1, r.Deduplicated)
	assert.Len(t, r.Succeeded(), 3)
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, KindAccessDenied, r.Failed()[0].Kind)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Classify(nil))
	assert.Equal(t, KindNotFound, Classify(fmt.Errorf("open: %w", fs.ErrNotExist)))
	assert.Equal(t, KindIO, Classify(errors.New("disk on fire")))

	ae := NewAssetError(KindFormat, "scan", "/p/x.max", errors.New("bad magic"))
	assert.Equal(t, KindFormat, Classify(fmt.Errorf("wrapped: %w", ae)))
	assert.Equal(t, "scan /p/x.max: format: bad magic", ae.Error())
}
