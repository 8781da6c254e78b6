package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/audit"
	"github.com/fusecpt/ats/internal/client"
	"github.com/fusecpt/ats/internal/model"
	"github.com/fusecpt/ats/internal/storage"
	"github.com/fusecpt/ats/pkg/apperr"
)

const jobNotFound = "Job not found"

// Upload is a file received with a request.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// JobService manages job postings and their audit trail.
type JobService struct {
	store   *storage.Store
	objects client.ObjectStorage
	logger  *zap.Logger
	now     func() time.Time
}

// NewJobService creates the service. objects may be nil, in which case logo
// uploads are skipped.
func NewJobService(store *storage.Store, objects client.ObjectStorage, logger *zap.Logger) *JobService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		store:   store,
		objects: objects,
		logger:  logger,
		now:     utcNow,
	}
}

// Create stores a new job with its created entry. A job with the same title
// and description URL must not exist yet.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest, creatorID string, logo *Upload) (*model.Job, error) {
	title := strings.TrimSpace(req.Title)
	descriptionURL := strings.TrimSpace(req.DescriptionURL)

	job := &model.Job{
		ID:                 uuid.New().String(),
		Title:              title,
		DescriptionURL:     descriptionURL,
		ClientName:         strings.TrimSpace(req.ClientName),
		ClientLogo:         req.ClientLogo,
		ClientTimezone:     req.ClientTimezone,
		ContractType:       req.ContractType,
		OverlapRequirement: req.OverlapRequirement,
		Region:             append([]string{}, req.Region...),
		MinimumExperience:  req.MinimumExperience,
		Status:             req.Status,
		Remarks:            req.Remarks,
		CreatedBy:          creatorID,
	}
	if job.Status == "" {
		job.Status = model.JobStatusOpen
	}

	if logo != nil {
		url, err := s.uploadLogo(ctx, job.ID, logo)
		if err != nil {
			return nil, err
		}
		if url != "" {
			job.ClientLogo = url
		}
	}

	now := s.now()
	job.History = []model.JobHistoryEntry{{
		JobID:     job.ID,
		Seq:       1,
		Action:    model.JobActionCreated,
		UserID:    creatorID,
		Changes:   audit.Created(job),
		CreatedAt: now,
	}}

	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		_, err := tx.FindJobByTitleAndURL(ctx, title, descriptionURL)
		switch {
		case err == nil:
			return apperr.Conflict("A job with this title and description URL already exists")
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		return tx.CreateJob(ctx, job)
	})
	if err != nil {
		return nil, mapStoreErr(err, jobNotFound)
	}

	s.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.String("title", job.Title),
		zap.String("user_id", creatorID),
	)
	return job, nil
}

func (s *JobService) uploadLogo(ctx context.Context, jobID string, logo *Upload) (string, error) {
	if s.objects == nil {
		s.logger.Warn("object storage not configured, skipping logo upload", zap.String("job_id", jobID))
		return "", nil
	}
	key := fmt.Sprintf("logos/%s%s", jobID, strings.ToLower(path.Ext(logo.Filename)))
	url, err := s.objects.Upload(ctx, key, logo.Body, logo.ContentType)
	if err != nil {
		return "", apperr.Server("Failed to upload logo", err)
	}
	return url, nil
}

// Update applies patch and records one updated entry listing every field that
// actually changed. A patch that changes nothing writes nothing.
func (s *JobService) Update(ctx context.Context, id string, patch *model.JobPatch, userID string) (*model.Job, error) {
	patch.Title = trimmed(patch.Title)
	patch.DescriptionURL = trimmed(patch.DescriptionURL)
	patch.ClientName = trimmed(patch.ClientName)

	var (
		updated *model.Job
		changes []model.FieldChange
	)
	err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		job, err := tx.GetJob(ctx, id, false)
		if err != nil {
			return err
		}

		changes = audit.Apply(job, patch)
		if len(changes) > 0 {
			if err := tx.SaveJob(ctx, job); err != nil {
				return err
			}
			if err := tx.AppendJobHistory(ctx, &model.JobHistoryEntry{
				JobID:     job.ID,
				Action:    model.JobActionUpdated,
				UserID:    userID,
				Changes:   changes,
				CreatedAt: s.now(),
			}); err != nil {
				return err
			}
		}

		updated, err = tx.GetJob(ctx, id, true)
		return err
	})
	if err != nil {
		return nil, mapStoreErr(err, jobNotFound)
	}

	if len(changes) > 0 {
		s.logger.Info("job updated",
			zap.String("job_id", id),
			zap.Int("changes", len(changes)),
			zap.String("user_id", userID),
		)
	}
	sortHistoryDesc(updated)
	return updated, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// Delete removes the job and its history. Candidates that reference the job
// are left as they are.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if err := s.store.Transaction(ctx, func(tx *storage.Store) error {
		return tx.DeleteJob(ctx, id)
	}); err != nil {
		return mapStoreErr(err, jobNotFound)
	}
	s.logger.Info("job deleted", zap.String("job_id", id))
	return nil
}

// GetByID returns the job with its history newest first and each entry's
// user resolved.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id, true)
	if err != nil {
		return nil, mapStoreErr(err, jobNotFound)
	}
	sortHistoryDesc(job)
	return job, nil
}

// sortHistoryDesc orders a copy of the loaded history newest first. Entries
// with equal timestamps keep the later insertion first.
func sortHistoryDesc(job *model.Job) {
	history := append([]model.JobHistoryEntry(nil), job.History...)
	sort.SliceStable(history, func(i, j int) bool {
		if history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].Seq > history[j].Seq
		}
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	job.History = history
}

// List returns a page of jobs, newest first.
func (s *JobService) List(ctx context.Context, q *model.JobListQuery) (*model.JobPage, error) {
	page, limit, offset := storage.Page(q.Page, q.Limit, defaultPageSize, maxPageSize)

	jobs, total, err := s.store.ListJobs(ctx, storage.JobFilter{
		Status: strings.TrimSpace(q.Status),
		Title:  strings.TrimSpace(q.Title),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, apperr.Server("", err)
	}

	return &model.JobPage{
		Total:      total,
		Page:       page,
		TotalPages: storage.TotalPages(total, limit),
		Jobs:       jobs,
	}, nil
}

// History returns the activity feed across all jobs, newest first.
func (s *JobService) History(ctx context.Context, q *model.JobHistoryQuery) (*model.JobHistoryPage, error) {
	page, limit, offset := storage.Page(q.Page, q.Limit, defaultPageSize, maxPageSize)

	records, total, err := s.store.ListJobHistory(ctx, storage.HistoryFilter{
		JobID:  strings.TrimSpace(q.JobID),
		UserID: strings.TrimSpace(q.UserID),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, apperr.Server("", err)
	}

	rows := make([]model.JobHistoryRow, 0, len(records))
	for _, r := range records {
		changes := []model.FieldChange(r.Changes)
		if changes == nil {
			changes = []model.FieldChange{}
		}
		rows = append(rows, model.JobHistoryRow{
			JobID:     r.JobID,
			JobTitle:  r.JobTitle,
			Action:    r.Action,
			User:      r.User.Summary(),
			Changes:   changes,
			CreatedAt: r.CreatedAt,
		})
	}

	return &model.JobHistoryPage{
		Total:      total,
		Page:       page,
		TotalPages: storage.TotalPages(total, limit),
		History:    rows,
	}, nil
}
