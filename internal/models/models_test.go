package models

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

func TestActionDestructive(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionMove, true},
		{ActionDelete, true},
		{ActionCopy, false},
		{ActionRestore, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			if got := tt.action.Destructive(); got != tt.want {
				t.Errorf("Destructive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileOperationFail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
	}{
		{
			name:     "missing source",
			err:      fmt.Errorf("move: %w", os.ErrNotExist),
			wantKind: KindNotFound,
		},
		{
			name:     "permission",
			err:      os.ErrPermission,
			wantKind: KindAccessDenied,
		},
		{
			name:     "asset error keeps its kind",
			err:      NewAssetError(KindIntegrity, "integrity", "/p/a.jpg", errors.New("bad header")),
			wantKind: KindIntegrity,
		},
		{
			name:     "anything else",
			err:      errors.New("disk on fire"),
			wantKind: KindIO,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &FileOperation{Source: "/p/a.jpg", Action: ActionMove, Success: true}
			op.Fail(tt.err)
			if op.Success {
				t.Error("Fail() left Success set")
			}
			if op.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", op.Kind, tt.wantKind)
			}
			if op.Error != tt.err.Error() {
				t.Errorf("Error = %q, want %q", op.Error, tt.err.Error())
			}
		})
	}
}

func TestAssetErrorMessage(t *testing.T) {
	err := NewAssetError(KindFormat, "scan", "/p/house.max", errors.New("not an OLE file"))
	want := "scan /p/house.max: format: not an OLE file"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := fmt.Errorf("analyze: %w", err)
	var ae *AssetError
	if !errors.As(wrapped, &ae) || ae.Path != "/p/house.max" {
		t.Errorf("errors.As did not find the asset error in %v", wrapped)
	}
	if Classify(nil) != "" {
		t.Errorf("Classify(nil) = %q, want empty", Classify(nil))
	}
}

func TestOrganizeResultSplit(t *testing.T) {
	r := &OrganizeResult{}
	r.Record(&FileOperation{Source: "a", Action: ActionMove, Success: true})
	r.Record(&FileOperation{Source: "b", Action: ActionDelete, Success: true})
	r.Record(&FileOperation{Source: "c", Action: ActionCopy, Error: "denied"})

	if len(r.Succeeded()) != 2 {
		t.Errorf("Succeeded() = %d operations, want 2", len(r.Succeeded()))
	}
	failed := r.Failed()
	if len(failed) != 1 || failed[0].Source != "c" {
		t.Errorf("Failed() = %v, want only c", failed)
	}
	if r.Copied != 0 {
		t.Errorf("Copied = %d, failed copies must not count", r.Copied)
	}
	if r.Deduplicated != 1 {
		t.Errorf("Deduplicated = %d, want 1", r.Deduplicated)
	}
}
