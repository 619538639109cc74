package organize

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/harrison/assetkeeper/internal/models"
)

const tgaHeaderSize = 18

var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF}
	jpegTail   = []byte{0xFF, 0xD9}
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
)

// CheckIntegrity runs a structural signature check on an image file. It
// returns nil for intact files and for formats without a usable signature
// (EXR, HDR). Other non-image files fail only when empty.
func CheckIntegrity(fs billy.Filesystem, path string) error {
	info, err := fs.Stat(path)
	if err != nil {
		return models.NewAssetError(models.Classify(err), "integrity", path, err)
	}
	size := info.Size()
	if size == 0 {
		return integrityError(path, "file is empty")
	}

	f, err := fs.Open(path)
	if err != nil {
		return models.NewAssetError(models.Classify(err), "integrity", path, err)
	}
	defer f.Close()

	head := readAt(f, 0, 16)
	tail := readAt(f, size-8, 8)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if !bytes.HasPrefix(head, jpegHeader) {
			return integrityError(path, "invalid JPEG header")
		}
		if !bytes.HasSuffix(tail, jpegTail) {
			return integrityError(path, "JPEG end marker missing, file may be truncated")
		}
	case ".png":
		if !bytes.HasPrefix(head, pngHeader) {
			return integrityError(path, "invalid PNG signature")
		}
		if !bytes.Contains(tail, []byte("IEND")) {
			return integrityError(path, "PNG IEND chunk missing, file may be truncated")
		}
	case ".gif":
		if !bytes.HasPrefix(head, []byte("GIF87a")) && !bytes.HasPrefix(head, []byte("GIF89a")) {
			return integrityError(path, "invalid GIF header")
		}
		if len(tail) == 0 || tail[len(tail)-1] != ';' {
			return integrityError(path, "GIF trailer missing, file may be truncated")
		}
	case ".bmp":
		if !bytes.HasPrefix(head, []byte("BM")) || len(head) < 6 {
			return integrityError(path, "invalid BMP header")
		}
		if declared := int64(binary.LittleEndian.Uint32(head[2:6])); declared != size {
			return integrityError(path, fmt.Sprintf("BMP size mismatch: header says %d, file is %d", declared, size))
		}
	case ".tif", ".tiff":
		if !bytes.HasPrefix(head, []byte("II*\x00")) && !bytes.HasPrefix(head, []byte("MM\x00*")) {
			return integrityError(path, "invalid TIFF header")
		}
	case ".tga":
		if size < tgaHeaderSize {
			return integrityError(path, "TGA file too small")
		}
		if size == tgaHeaderSize {
			return integrityError(path, "TGA has a header but no image data")
		}
	case ".dds":
		if !bytes.HasPrefix(head, []byte("DDS ")) {
			return integrityError(path, "invalid DDS header")
		}
	}
	return nil
}

func integrityError(path, reason string) error {
	return models.NewAssetError(models.KindIntegrity, "integrity", path, errors.New(reason))
}

// readAt returns up to n bytes at off, or fewer near the file bounds.
func readAt(r io.ReaderAt, off int64, n int) []byte {
	if off < 0 {
		n += int(off)
		off = 0
	}
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	got, _ := r.ReadAt(buf, off)
	return buf[:got]
}
