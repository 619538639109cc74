package models

import (
	"errors"
	"io/fs"
	"strings"
)

// ErrorKind classifies asset failures.
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindFormat             ErrorKind = "format"
	KindAccessDenied       ErrorKind = "access_denied"
	KindIntegrity          ErrorKind = "integrity"
	KindDuplicateAmbiguous ErrorKind = "duplicate_ambiguous"
	KindIO                 ErrorKind = "io"
)

// AssetError is a failure tied to one path.
type AssetError struct {
	Kind ErrorKind
	Op   string
	Path string
	Err  error
}

// NewAssetError builds an AssetError.
func NewAssetError(kind ErrorKind, op, path string, err error) *AssetError {
	return &AssetError{Kind: kind, Op: op, Path: path, Err: err}
}

// Error implements the error interface.
func (e *AssetError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(" ")
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(string(e.Kind))
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *AssetError) Unwrap() error {
	return e.Err
}

// Classify maps err onto the error taxonomy.
func Classify(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ae *AssetError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	default:
		return KindIO
	}
}
