package scene

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
)

// oleMagic is the signature of an OLE compound file.
var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ErrNotContainer is returned when a document lacks the compound file signature.
var ErrNotContainer = errors.New("not an OLE compound file")

// ErrTruncated is returned with the streams read so far when the
// container directory cannot be walked to the end.
var ErrTruncated = errors.New("compound file directory truncated")

// Stream is one internal data stream of a scene container.
type Stream struct {
	Name string
	Data []byte
	// Err is set when the stream could not be read in full.
	Err error
}

// Container lists the data streams of a scene document.
type Container interface {
	Streams(r io.ReaderAt) ([]Stream, error)
}

// OLEContainer reads OLE compound files with mscfb.
type OLEContainer struct{}

// Streams verifies the signature and reads every stream. Storages are
// skipped. A stream that fails mid-read is returned with Err set and
// whatever bytes were read. If the directory walk stops early the streams
// read so far are returned along with an error wrapping ErrTruncated.
func (OLEContainer) Streams(r io.ReaderAt) ([]Stream, error) {
	head := make([]byte, len(oleMagic))
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotContainer, err)
	}
	if !bytes.Equal(head, oleMagic) {
		return nil, ErrNotContainer
	}

	doc, err := mscfb.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open compound file: %w", err)
	}

	var streams []Stream
	for {
		entry, err := doc.Next()
		if err == io.EOF {
			return streams, nil
		}
		if err != nil {
			return streams, fmt.Errorf("%w after %d streams: %v", ErrTruncated, len(streams), err)
		}
		if entry.Size <= 0 {
			continue
		}
		name := strings.Join(append(append([]string{}, entry.Path...), entry.Name), "/")
		data, rerr := io.ReadAll(entry)
		streams = append(streams, Stream{Name: name, Data: data, Err: rerr})
	}
}
