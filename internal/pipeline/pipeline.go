// Package pipeline holds the candidate pipeline transition rules. Functions
// here mutate an in-memory candidate and return the history entry to append;
// persistence is the caller's concern.
package pipeline

import (
	"strings"
	"time"

	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/pkg/apperr"
)

// ApplyDefaults fills an unset stage or status with the pipeline entry point.
func ApplyDefaults(c *model.Candidate) {
	if c.PipelineStage == "" {
		c.PipelineStage = model.StagePreliminary
	}
	if c.Status == "" {
		c.Status = model.StatusToBeScheduled
	}
}

// Add starts the history of a new candidate. The candidate must not have any
// history yet.
func Add(c *model.Candidate, actor string, now time.Time) (model.PipelineEntry, error) {
	if strings.TrimSpace(actor) == "" {
		return model.PipelineEntry{}, apperr.Validation("actionBy is required")
	}
	if len(c.PipelineHistory) > 0 {
		return model.PipelineEntry{}, apperr.Validation("candidate already has pipeline history")
	}
	ApplyDefaults(c)
	if !model.IsValidStage(c.PipelineStage) {
		return model.PipelineEntry{}, apperr.Validation("invalid pipeline stage")
	}

	return appendEntry(c, model.PipelineEntry{
		ActionType:    model.ActionAdded,
		PipelineStage: c.PipelineStage,
		Status:        c.Status,
		ActionBy:      actor,
		Date:          now,
		Remarks:       c.Remarks,
	}), nil
}

// Move records a stage or status change requested by a patch. It returns nil
// when neither value changes or when no actor is known; in the latter case no
// audit record is written. The candidate fields themselves are applied by the
// caller.
func Move(c *model.Candidate, stage *model.PipelineStage, status *model.CandidateStatus, actor string, now time.Time) *model.PipelineEntry {
	nextStage := c.PipelineStage
	if stage != nil {
		nextStage = *stage
	}
	nextStatus := c.Status
	if status != nil {
		nextStatus = *status
	}

	if nextStage == c.PipelineStage && nextStatus == c.Status {
		return nil
	}
	if strings.TrimSpace(actor) == "" {
		return nil
	}

	entry := appendEntry(c, model.PipelineEntry{
		ActionType:    model.ActionMoved,
		PipelineStage: nextStage,
		Status:        nextStatus,
		ActionBy:      actor,
		Date:          now,
	})
	return &entry
}

// Reject marks the candidate Rejected without touching its stage.
func Reject(c *model.Candidate, remarks, actor string, now time.Time) (model.PipelineEntry, error) {
	if err := RequireRemarks(remarks, actor); err != nil {
		return model.PipelineEntry{}, err
	}

	entry := appendEntry(c, model.PipelineEntry{
		ActionType:    model.ActionRejected,
		PipelineStage: c.PipelineStage,
		Status:        model.StatusRejected,
		ActionBy:      actor,
		Date:          now,
		Remarks:       remarks,
	})
	c.Status = model.StatusRejected
	c.RejRemarks = remarks
	return entry, nil
}

// Reactivate puts a candidate back to To Be Scheduled in its current stage.
func Reactivate(c *model.Candidate, remarks, actor string, now time.Time) (model.PipelineEntry, error) {
	if err := RequireRemarks(remarks, actor); err != nil {
		return model.PipelineEntry{}, err
	}

	entry := appendEntry(c, model.PipelineEntry{
		ActionType:    model.ActionReactivated,
		PipelineStage: c.PipelineStage,
		Status:        model.StatusToBeScheduled,
		ActionBy:      actor,
		Date:          now,
		Remarks:       remarks,
	})
	c.Status = model.StatusToBeScheduled
	return entry, nil
}

// ValidateReplacement checks a caller supplied history before it replaces the
// stored one.
func ValidateReplacement(history []model.PipelineEntry) error {
	if len(history) == 0 {
		return apperr.Validation("pipelineHistory must not be empty")
	}
	if history[0].ActionType != model.ActionAdded {
		return apperr.Validation("pipelineHistory must start with an added entry")
	}
	for _, e := range history {
		switch e.ActionType {
		case model.ActionAdded, model.ActionMoved, model.ActionRejected, model.ActionReactivated:
		default:
			return apperr.Validation("invalid pipelineHistory actionType: " + string(e.ActionType))
		}
		if !model.IsValidStage(e.PipelineStage) {
			return apperr.Validation("invalid pipelineHistory stage: " + string(e.PipelineStage))
		}
		if !model.IsValidStatus(e.Status) {
			return apperr.Validation("invalid pipelineHistory status: " + string(e.Status))
		}
	}
	return nil
}

// RequireRemarks checks the arguments shared by Reject and Reactivate.
func RequireRemarks(remarks, actor string) error {
	if strings.TrimSpace(remarks) == "" {
		return apperr.Validation("rej_remarks is required")
	}
	if strings.TrimSpace(actor) == "" {
		return apperr.Validation("actionBy is required")
	}
	return nil
}

func appendEntry(c *model.Candidate, e model.PipelineEntry) model.PipelineEntry {
	e.CandidateID = c.ID
	e.Seq = nextSeq(c.PipelineHistory)
	c.PipelineHistory = append(c.PipelineHistory, e)
	return e
}

func nextSeq(history []model.PipelineEntry) int {
	highest := 0
	for _, e := range history {
		if e.Seq > highest {
			highest = e.Seq
		}
	}
	return highest + 1
}
