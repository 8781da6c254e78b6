package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fusecpt/ats/internal/model"
)

// CandidateFilter selects candidates. Statuses match any of the listed values.
type CandidateFilter struct {
	Statuses []string
	FullName string
	JobID    string
	Offset   int
	Limit    int
}

func orderedPipeline(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// CreateCandidate inserts the candidate together with its initial history.
func (s *Store) CreateCandidate(ctx context.Context, c *model.Candidate) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create candidate: %w", err)
	}
	return nil
}

// GetCandidate loads a candidate with its history in insertion order.
func (s *Store) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	var c model.Candidate
	err := s.db.WithContext(ctx).
		Preload("PipelineHistory", orderedPipeline).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SaveCandidate writes the candidate's own columns. History is left alone.
func (s *Store) SaveCandidate(ctx context.Context, c *model.Candidate) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error; err != nil {
		return fmt.Errorf("save candidate: %w", err)
	}
	return nil
}

// AppendPipelineEntry inserts one history entry after the last stored one.
func (s *Store) AppendPipelineEntry(ctx context.Context, e *model.PipelineEntry) error {
	db := s.db.WithContext(ctx)
	seq, err := nextSeq(db, &model.PipelineEntry{}, "candidate_id", e.CandidateID)
	if err != nil {
		return fmt.Errorf("next pipeline seq: %w", err)
	}
	e.ID = 0
	e.Seq = seq
	if err := db.Create(e).Error; err != nil {
		return fmt.Errorf("append pipeline entry: %w", err)
	}
	return nil
}

// ReplacePipelineHistory swaps the whole history of a candidate.
func (s *Store) ReplacePipelineHistory(ctx context.Context, candidateID string, entries []model.PipelineEntry) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("candidate_id = ?", candidateID).Delete(&model.PipelineEntry{}).Error; err != nil {
		return fmt.Errorf("clear pipeline history: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].ID = 0
		entries[i].CandidateID = candidateID
		entries[i].Seq = i + 1
	}
	if err := db.Create(&entries).Error; err != nil {
		return fmt.Errorf("insert pipeline history: %w", err)
	}
	return nil
}

// DeleteCandidate removes a candidate and its history.
func (s *Store) DeleteCandidate(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("candidate_id = ?", id).Delete(&model.PipelineEntry{}).Error; err != nil {
		return fmt.Errorf("delete pipeline history: %w", err)
	}
	tx := db.Where("id = ?", id).Delete(&model.Candidate{})
	if tx.Error != nil {
		return fmt.Errorf("delete candidate: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchCandidates returns one page of matching candidates, newest first, and
// the total number of matches.
func (s *Store) SearchCandidates(ctx context.Context, f CandidateFilter) ([]model.Candidate, int64, error) {
	var total int64
	if err := applyCandidateFilters(s.db.WithContext(ctx).Model(&model.Candidate{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count candidates: %w", err)
	}

	query := applyCandidateFilters(s.db.WithContext(ctx).Model(&model.Candidate{}), f).
		Preload("PipelineHistory", orderedPipeline).
		Order("created_at DESC").
		Order("id ASC")
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	candidates := []model.Candidate{}
	if err := query.Find(&candidates).Error; err != nil {
		return nil, 0, fmt.Errorf("search candidates: %w", err)
	}
	return candidates, total, nil
}

func applyCandidateFilters(db *gorm.DB, f CandidateFilter) *gorm.DB {
	if len(f.Statuses) > 0 {
		db = db.Where("status IN ?", f.Statuses)
	}
	if f.FullName != "" {
		db = db.Where(`LOWER(full_name) LIKE ? ESCAPE '\'`, likePattern(f.FullName))
	}
	if f.JobID != "" {
		db = db.Where("job_id = ?", f.JobID)
	}
	return db
}
