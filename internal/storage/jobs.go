package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fusecpt/ats/internal/model"
)

// JobFilter selects jobs.
type JobFilter struct {
	Status string
	Title  string
	Offset int
	Limit  int
}

// HistoryFilter selects entries of the cross-job activity feed.
type HistoryFilter struct {
	JobID  string
	UserID string
	Offset int
	Limit  int
}

// HistoryRecord is a history entry joined with the title of its job.
type HistoryRecord struct {
	model.JobHistoryEntry
	JobTitle string
}

func orderedJobHistory(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// CreateJob inserts the job together with its initial history.
func (s *Store) CreateJob(ctx context.Context, j *model.Job) error {
	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// FindJobByTitleAndURL returns the job with exactly this title and description
// URL, or ErrNotFound.
func (s *Store) FindJobByTitleAndURL(ctx context.Context, title, descriptionURL string) (*model.Job, error) {
	var j model.Job
	err := s.db.WithContext(ctx).
		Where("title = ? AND description_url = ?", title, descriptionURL).
		First(&j).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

// GetJob loads a job. With withHistory the history is loaded in insertion
// order with each entry's user resolved.
func (s *Store) GetJob(ctx context.Context, id string, withHistory bool) (*model.Job, error) {
	query := s.db.WithContext(ctx)
	if withHistory {
		query = query.Preload("History", orderedJobHistory).Preload("History.User")
	}
	var j model.Job
	if err := query.First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

// SaveJob writes the job's own columns. History is left alone.
func (s *Store) SaveJob(ctx context.Context, j *model.Job) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(j).Error; err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// AppendJobHistory inserts one audit entry after the last stored one.
func (s *Store) AppendJobHistory(ctx context.Context, e *model.JobHistoryEntry) error {
	db := s.db.WithContext(ctx)
	seq, err := nextSeq(db, &model.JobHistoryEntry{}, "job_id", e.JobID)
	if err != nil {
		return fmt.Errorf("next job history seq: %w", err)
	}
	e.ID = 0
	e.Seq = seq
	if err := db.Omit("User").Create(e).Error; err != nil {
		return fmt.Errorf("append job history: %w", err)
	}
	return nil
}

// DeleteJob removes a job and its history.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("job_id = ?", id).Delete(&model.JobHistoryEntry{}).Error; err != nil {
		return fmt.Errorf("delete job history: %w", err)
	}
	tx := db.Where("id = ?", id).Delete(&model.Job{})
	if tx.Error != nil {
		return fmt.Errorf("delete job: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobs returns one page of jobs, newest first, and the total count.
func (s *Store) ListJobs(ctx context.Context, f JobFilter) ([]model.Job, int64, error) {
	var total int64
	if err := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	query := applyJobFilters(s.db.WithContext(ctx).Model(&model.Job{}), f).
		Order("created_at DESC").
		Order("id ASC")
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	jobs := []model.Job{}
	if err := query.Find(&jobs).Error; err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, total, nil
}

func applyJobFilters(db *gorm.DB, f JobFilter) *gorm.DB {
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	if f.Title != "" {
		db = db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, likePattern(f.Title))
	}
	return db
}

// ListJobHistory returns one page of the activity feed across all jobs,
// newest first, and the total count.
func (s *Store) ListJobHistory(ctx context.Context, f HistoryFilter) ([]HistoryRecord, int64, error) {
	var total int64
	if err := applyHistoryFilters(s.db.WithContext(ctx).Model(&model.JobHistoryEntry{}), f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count job history: %w", err)
	}

	query := applyHistoryFilters(s.db.WithContext(ctx).Model(&model.JobHistoryEntry{}), f).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC")
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var entries []model.JobHistoryEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list job history: %w", err)
	}

	titles, err := s.jobTitles(ctx, entries)
	if err != nil {
		return nil, 0, err
	}

	records := make([]HistoryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, HistoryRecord{JobHistoryEntry: e, JobTitle: titles[e.JobID]})
	}
	return records, total, nil
}

func (s *Store) jobTitles(ctx context.Context, entries []model.JobHistoryEntry) (map[string]string, error) {
	titles := make(map[string]string)
	if len(entries) == 0 {
		return titles, nil
	}
	ids := make([]string, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		if !seen[e.JobID] {
			seen[e.JobID] = true
			ids = append(ids, e.JobID)
		}
	}
	var jobs []model.Job
	if err := s.db.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("load job titles: %w", err)
	}
	for _, j := range jobs {
		titles[j.ID] = j.Title
	}
	return titles, nil
}

func applyHistoryFilters(db *gorm.DB, f HistoryFilter) *gorm.DB {
	if f.JobID != "" {
		db = db.Where("job_id = ?", f.JobID)
	}
	if f.UserID != "" {
		db = db.Where("user_id = ?", f.UserID)
	}
	return db
}
