package models

import "time"

// Action is the kind of filesystem mutation an operation performs.
type Action string

const (
	ActionMove    Action = "move"
	ActionCopy    Action = "copy"
	ActionDelete  Action = "delete"
	ActionRestore Action = "restore"
)

// Destructive reports whether the action removes bytes from their original location.
func (a Action) Destructive() bool {
	return a == ActionMove || a == ActionDelete
}

// FileOperation is one attempted move, copy or delete.
type FileOperation struct {
	Source      string    `json:"source"`
	Destination string    `json:"destination,omitempty"`
	Action      Action    `json:"action"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Kind        ErrorKind `json:"kind,omitempty"`
	BackupPath  string    `json:"backup_path,omitempty"`
	Time        time.Time `json:"time"`
}

// Fail records err on the operation.
func (op *FileOperation) Fail(err error) {
	op.Success = false
	op.Error = err.Error()
	op.Kind = Classify(err)
}

// IntegrityWarning flags a file whose structure failed a signature check.
// The file is still processed.
type IntegrityWarning struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Conflict records same-name files whose content differs.
type Conflict struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
	Candidate string `json:"candidate"`
	RenamedTo string `json:"renamed_to"`
}

// OrganizeResult summarizes one organize run.
type OrganizeResult struct {
	Root         string             `json:"root"`
	LinkedFolder string             `json:"linked_folder"`
	UnusedFolder string             `json:"unused_folder"`
	RunID        string             `json:"run_id,omitempty"`
	Operations   []*FileOperation   `json:"operations"`
	Moved        int                `json:"moved"`
	Copied       int                `json:"copied"`
	Deduplicated int                `json:"deduplicated"`
	Skipped      int                `json:"skipped"`
	Warnings     []IntegrityWarning `json:"warnings,omitempty"`
	Conflicts    []Conflict         `json:"conflicts,omitempty"`
	PrunedDirs   []string           `json:"pruned_dirs,omitempty"`
	Canceled     bool               `json:"canceled,omitempty"`
}

// Record appends op and bumps the matching counter when it succeeded.
func (r *OrganizeResult) Record(op *FileOperation) {
	r.Operations = append(r.Operations, op)
	if !op.Success {
		return
	}
	switch op.Action {
	case ActionMove:
		r.Moved++
	case ActionCopy:
		r.Copied++
	case ActionDelete:
		r.Deduplicated++
	}
}

// Succeeded returns the operations that completed.
func (r *OrganizeResult) Succeeded() []*FileOperation {
	var out []*FileOperation
	for _, op := range r.Operations {
		if op.Success {
			out = append(out, op)
		}
	}
	return out
}

// Failed returns the operations that did not complete, with their reasons.
func (r *OrganizeResult) Failed() []*FileOperation {
	var out []*FileOperation
	for _, op := range r.Operations {
		if !op.Success {
			out = append(out, op)
		}
	}
	return out
}
