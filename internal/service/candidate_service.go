package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/pipeline"
	"github.com/fusecpt/ats/internal/storage"
	"github.com/fusecpt/ats/pkg/apperr"
)

const candidateNotFound = "Candidate not found"

// CandidateService runs the candidate pipeline operations. Every mutation is
// one transaction and is announced on the job's board afterwards.
type CandidateService struct {
	store  *storage.Store
	board  BoardPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewCandidateService(store *storage.Store, board BoardPublisher, logger *zap.Logger) *CandidateService {
	if board == nil {
		board = nopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidateService{
		store:  store,
		board:  board,
		logger: logger,
		now:    utcNow,
	}
}

// Add creates a candidate with its first history entry.
func (s *CandidateService) Add(ctx context.Context, req *model.CreateCandidateRequest, actor string) (*model.Candidate, error) {
	c := &model.Candidate{
		ID:            uuid.New().String(),
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		Phone:         req.Phone,
		ResumeURL:     req.ResumeURL,
		CandidateType: req.CandidateType,
		Remarks:       req.Remarks,
		JobID:         req.JobID,
		Status:        req.Status,
		PipelineStage: req.PipelineStage,
	}
	if c.Status != "" && !model.IsValidStatus(c.Status) {
		return nil, apperr.Validation("invalid status")
	}

	entry, err := pipeline.Add(c, actor, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateCandidate(ctx, c); err != nil {
		return nil, mapStoreErr(err, candidateNotFound)
	}

	s.logger.Info("candidate added",
		zap.String("candidate_id", c.ID),
		zap.String("job_id", c.JobID),
		zap.String("actor", actor),
	)
	s.publish(model.BoardEventAdded, c, &entry)
	return c, nil
}

// Get returns a candidate with its history in insertion order.
func (s *CandidateService) Get(ctx context.Context, id string) (*model.Candidate, error) {
	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, candidateNotFound)
	}
	return c, nil
}

// Update applies patch. A stage or status change made by a known actor is
// recorded as a moved entry; a patch carrying pipelineHistory replaces the
// stored history instead and no entry is generated.
func (s *CandidateService) Update(ctx context.Context, id string, patch *model.CandidatePatch, actor string) (*model.Candidate, error) {
	if patch.PipelineStage != nil && !model.IsValidStage(*patch.PipelineStage) {
		return nil, apperr.Validation("invalid pipeline stage")
	}
	if patch.Status != nil && !model.IsValidStatus(*patch.Status) {
		return nil, apperr.Validation("invalid status")
	}
	replacing := patch.PipelineHistory != nil
	if replacing {
		if err := pipeline.ValidateReplacement(patch.PipelineHistory); err != nil {
			return nil, err
		}
	}

	var (
		updated *model.Candidate
		entry   *model.PipelineEntry
	)
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}

		if !replacing {
			entry = pipeline.Move(c, patch.PipelineStage, patch.Status, actor, s.now())
		}
		applyCandidatePatch(c, patch)

		if err := tx.SaveCandidate(ctx, c); err != nil {
			return err
		}
		switch {
		case replacing:
			history := append([]model.PipelineEntry(nil), patch.PipelineHistory...)
			if err := tx.ReplacePipelineHistory(ctx, c.ID, history); err != nil {
				return err
			}
			c.PipelineHistory = history
		case entry != nil:
			if err := tx.AppendPipelineEntry(ctx, entry); err != nil {
				return err
			}
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err, candidateNotFound)
	}

	if entry == nil && !replacing && (patch.PipelineStage != nil || patch.Status != nil) && strings.TrimSpace(actor) == "" {
		s.logger.Warn("candidate stage or status updated without an actor; no history recorded",
			zap.String("candidate_id", id),
		)
	}

	event := model.BoardEventUpdated
	if entry != nil {
		event = model.BoardEventMoved
	}
	s.publish(event, updated, entry)
	return updated, nil
}

func applyCandidatePatch(c *model.Candidate, patch *model.CandidatePatch) {
	if patch.FullName != nil {
		c.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Email != nil {
		c.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.ResumeURL != nil {
		c.ResumeURL = *patch.ResumeURL
	}
	if patch.CandidateType != nil {
		c.CandidateType = *patch.CandidateType
	}
	if patch.Remarks != nil {
		c.Remarks = *patch.Remarks
	}
	if patch.JobID != nil {
		c.JobID = *patch.JobID
	}
	if patch.Status != nil {
		c.Status = *patch.Status
	}
	if patch.PipelineStage != nil {
		c.PipelineStage = *patch.PipelineStage
	}
	if patch.RejRemarks != nil {
		c.RejRemarks = *patch.RejRemarks
	}
}

// Reject marks the candidate Rejected in its current stage.
func (s *CandidateService) Reject(ctx context.Context, id, remarks, actor string) (*model.Candidate, error) {
	return s.transition(ctx, id, remarks, actor, model.BoardEventRejected, pipeline.Reject)
}

// Reactivate returns a rejected candidate to To Be Scheduled.
func (s *CandidateService) Reactivate(ctx context.Context, id, remarks, actor string) (*model.Candidate, error) {
	return s.transition(ctx, id, remarks, actor, model.BoardEventReactivated, pipeline.Reactivate)
}

type transitionFunc func(c *model.Candidate, remarks, actor string, now time.Time) (model.PipelineEntry, error)

func (s *CandidateService) transition(ctx context.Context, id, remarks, actor, event string, apply transitionFunc) (*model.Candidate, error) {
	if err := pipeline.RequireRemarks(remarks, actor); err != nil {
		return nil, err
	}

	var (
		updated *model.Candidate
		entry   model.PipelineEntry
	)
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		entry, err = apply(c, remarks, actor, s.now())
		if err != nil {
			return err
		}
		if err := tx.SaveCandidate(ctx, c); err != nil {
			return err
		}
		if err := tx.AppendPipelineEntry(ctx, &entry); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, mapStoreErr(err, candidateNotFound)
	}

	s.logger.Info("candidate transition",
		zap.String("candidate_id", id),
		zap.String("event", event),
		zap.String("actor", actor),
	)
	s.publish(event, updated, &entry)
	return updated, nil
}

// Delete removes the candidate and its history.
func (s *CandidateService) Delete(ctx context.Context, id string) error {
	var jobID string
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		c, err := tx.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		jobID = c.JobID
		return tx.DeleteCandidate(ctx, id)
	})
	if err != nil {
		return mapStoreErr(err, candidateNotFound)
	}

	s.logger.Info("candidate deleted", zap.String("candidate_id", id))
	s.board.PublishBoard(model.WSBoardMessage{
		Event:       model.BoardEventDeleted,
		JobID:       jobID,
		CandidateID: id,
	})
	return nil
}

// Search filters candidates. Status accepts a comma separated list.
func (s *CandidateService) Search(ctx context.Context, q *model.CandidateSearchQuery) (*model.CandidatePage, error) {
	page, limit, offset := storage.Page(q.Page, q.Limit, defaultPageSize, maxPageSize)

	var statuses []string
	for _, st := range strings.Split(q.Status, ",") {
		if st = strings.TrimSpace(st); st != "" {
			statuses = append(statuses, st)
		}
	}

	candidates, total, err := s.store.SearchCandidates(ctx, storage.CandidateFilter{
		Statuses: statuses,
		FullName: strings.TrimSpace(q.FullName),
		JobID:    strings.TrimSpace(q.JobID),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		return nil, apperr.Server("", err)
	}

	return &model.CandidatePage{
		Total:      total,
		Page:       page,
		TotalPages: storage.TotalPages(total, limit),
		Candidates: candidates,
	}, nil
}

// List returns every candidate, one page at a time.
func (s *CandidateService) List(ctx context.Context, page, limit int) (*model.CandidatePage, error) {
	return s.Search(ctx, &model.CandidateSearchQuery{Page: page, Limit: limit})
}

// Timeline returns the candidate's history as it is shown to users, newest
// first.
func (s *CandidateService) Timeline(ctx context.Context, id string) ([]pipeline.TimelineItem, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return pipeline.Timeline(c.PipelineHistory), nil
}

func (s *CandidateService) publish(event string, c *model.Candidate, entry *model.PipelineEntry) {
	if c == nil {
		return
	}
	s.board.PublishBoard(model.WSBoardMessage{
		Event:       event,
		JobID:       c.JobID,
		CandidateID: c.ID,
		Candidate:   c,
		Entry:       entry,
	})
}
