package placement

import (
	"github.com/grovetools/framefill/errors"
	"github.com/grovetools/framefill/pkg/document"
	"github.com/grovetools/framefill/pkg/geometry"
)

// Placed describes one image that landed in its frame.
type Placed struct {
	Key          string             `json:"key"`
	CollectionID string             `json:"collection_id"`
	TargetID     string             `json:"target_id"`
	ElementID    string             `json:"element_id"`
	Transform    geometry.Transform `json:"transform"`
}

// Failure describes one pair that could not be placed.
type Failure struct {
	Key          string           `json:"key"`
	CollectionID string           `json:"collection_id"`
	TargetID     string           `json:"target_id"`
	Stage        document.Stage   `json:"stage"`
	Code         errors.ErrorCode `json:"code"`
	Err          error            `json:"-"`
	Message      string           `json:"message"`
}

// Mismatch records the counts of a rejected or truncated batch.
type Mismatch struct {
	SelectedCount int `json:"selected_count"`
	TargetCount   int `json:"target_count"`
}

// Report is the outcome of a batch.
type Report struct {
	Placed    []Placed  `json:"placed"`
	Failed    []Failure `json:"failed"`
	Mismatch  *Mismatch `json:"mismatch,omitempty"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Attempted returns how many pairs were tried.
func (r Report) Attempted() int {
	return len(r.Placed) + len(r.Failed)
}

// Rejected reports whether the batch was refused over a count mismatch.
func (r Report) Rejected() bool {
	return r.Mismatch != nil && !r.Truncated
}

// Err returns the MISMATCH error for a rejected batch, or nil.
func (r Report) Err() error {
	if !r.Rejected() {
		return nil
	}
	return errors.Mismatch(r.Mismatch.SelectedCount, r.Mismatch.TargetCount)
}

// OK reports whether every attempted pair was placed.
func (r Report) OK() bool {
	return r.Mismatch == nil && len(r.Failed) == 0
}

func newFailure(key, collectionID, targetID string, stage document.Stage, err error) Failure {
	f := Failure{
		Key:          key,
		CollectionID: collectionID,
		TargetID:     targetID,
		Stage:        stage,
		Code:         errors.GetCode(err),
		Err:          err,
		Message:      err.Error(),
	}
	if f.Code == "" {
		f.Code = errors.ErrCodeInternal
	}
	return f
}
