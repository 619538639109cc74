package models

import (
	"path/filepath"
	"sort"
	"strings"
)

// Category is the asset class a file extension belongs to.
type Category string

const (
	// CategoryTexture covers bitmap and texture formats.
	CategoryTexture Category = "texture"
	// CategoryProxy covers geometry proxies and caches.
	CategoryProxy Category = "proxy"
	// CategoryOther covers IES profiles and material libraries.
	CategoryOther Category = "other"
)

// Categories lists every category in reporting order.
var Categories = []Category{CategoryTexture, CategoryProxy, CategoryOther}

// TextureExtensions are the bitmap formats a scene can reference.
// .tx and .tex are renderer-specific mipmapped textures.
var TextureExtensions = []string{
	".jpg", ".jpeg", ".png", ".tga", ".tif", ".tiff", ".bmp", ".gif",
	".exr", ".hdr", ".psd", ".dds", ".tx", ".tex",
}

// ProxyExtensions are geometry proxy and cache formats.
var ProxyExtensions = []string{
	".vrmesh", ".vrmap", ".vrscene", ".cgeo", ".abc", ".rs", ".ass", ".bgeo", ".obj",
}

// OtherExtensions are lighting profiles and material libraries.
var OtherExtensions = []string{".ies", ".hdri", ".mat", ".vismat"}

var extensionCategory = func() map[string]Category {
	m := make(map[string]Category)
	for _, ext := range TextureExtensions {
		m[ext] = CategoryTexture
	}
	for _, ext := range ProxyExtensions {
		m[ext] = CategoryProxy
	}
	for _, ext := range OtherExtensions {
		m[ext] = CategoryOther
	}
	return m
}()

// CategoryOf returns the category for a path or bare extension.
// The second return value is false when the extension is not supported.
func CategoryOf(path string) (Category, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" && strings.HasPrefix(path, ".") {
		ext = strings.ToLower(path)
	}
	cat, ok := extensionCategory[ext]
	return cat, ok
}

// IsSupported reports whether the path has an allowlisted asset extension.
func IsSupported(path string) bool {
	_, ok := CategoryOf(path)
	return ok
}

// SupportedExtensions returns every allowlisted extension, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionCategory))
	for ext := range extensionCategory {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
