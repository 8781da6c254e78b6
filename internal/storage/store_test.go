package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusecpt/ats/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func seedCandidate(t *testing.T, s *Store, id, name, jobID string, status model.CandidateStatus, created time.Time) *model.Candidate {
	t.Helper()
	c := &model.Candidate{
		ID:            id,
		FullName:      name,
		Email:         id + "@example.com",
		JobID:         jobID,
		Status:        status,
		PipelineStage: model.StagePreliminary,
		CreatedAt:     created,
		PipelineHistory: []model.PipelineEntry{{
			Seq:           1,
			ActionType:    model.ActionAdded,
			PipelineStage: model.StagePreliminary,
			Status:        status,
			ActionBy:      "recruiter",
			Date:          created,
		}},
	}
	require.NoError(t, s.CreateCandidate(context.Background(), c))
	return c
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "x")
	require.Error(t, err)
}

func TestPage(t *testing.T) {
	page, limit, offset := Page(0, 0, 10, 100)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 0, offset)

	page, limit, offset = Page(3, 500, 10, 100)
	assert.Equal(t, 3, page)
	assert.Equal(t, 100, limit)
	assert.Equal(t, 200, offset)

	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 3, TotalPages(21, 10))
	assert.Equal(t, 2, TotalPages(20, 10))
}

func TestCandidate_HistoryAppendAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c-1", "Ada Lovelace", "job-1", model.StatusToBeScheduled, base)

	for i, stage := range []model.PipelineStage{model.StageTechnical, model.StageClient} {
		require.NoError(t, s.AppendPipelineEntry(ctx, &model.PipelineEntry{
			CandidateID:   "c-1",
			ActionType:    model.ActionMoved,
			PipelineStage: stage,
			Status:        model.StatusScheduled,
			ActionBy:      "recruiter",
			Date:          base.Add(time.Duration(i+1) * time.Hour),
		}))
	}

	got, err := s.GetCandidate(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, got.PipelineHistory, 3)
	assert.Equal(t, model.ActionAdded, got.PipelineHistory[0].ActionType)
	assert.Equal(t, model.StageTechnical, got.PipelineHistory[1].PipelineStage)
	assert.Equal(t, model.StageClient, got.PipelineHistory[2].PipelineStage)
	assert.Equal(t, 3, got.PipelineHistory[2].Seq)
}

func TestCandidate_SaveLeavesHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	c := seedCandidate(t, s, "c-1", "Ada Lovelace", "job-1", model.StatusToBeScheduled, base)

	c.Phone = "+27 21 000 0000"
	c.PipelineHistory = nil
	require.NoError(t, s.SaveCandidate(ctx, c))

	got, err := s.GetCandidate(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "+27 21 000 0000", got.Phone)
	assert.Len(t, got.PipelineHistory, 1)
}

func TestCandidate_ReplaceHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c-1", "Ada Lovelace", "job-1", model.StatusToBeScheduled, base)

	replacement := []model.PipelineEntry{
		{ActionType: model.ActionAdded, PipelineStage: model.StagePreliminary, Status: model.StatusActive, ActionBy: "import", Date: base},
		{ActionType: model.ActionMoved, PipelineStage: model.StageSelected, Status: model.StatusSelected, ActionBy: "import", Date: base.Add(time.Hour)},
	}
	require.NoError(t, s.ReplacePipelineHistory(ctx, "c-1", replacement))

	got, err := s.GetCandidate(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, got.PipelineHistory, 2)
	assert.Equal(t, "import", got.PipelineHistory[0].ActionBy)
	assert.Equal(t, 2, got.PipelineHistory[1].Seq)
}

func TestCandidate_DeleteRemovesHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c-1", "Ada Lovelace", "job-1", model.StatusToBeScheduled, base)

	require.NoError(t, s.DeleteCandidate(ctx, "c-1"))

	_, err := s.GetCandidate(ctx, "c-1")
	assert.True(t, errors.Is(err, ErrNotFound))

	var count int64
	require.NoError(t, s.db.Model(&model.PipelineEntry{}).Where("candidate_id = ?", "c-1").Count(&count).Error)
	assert.Zero(t, count)

	assert.True(t, errors.Is(s.DeleteCandidate(ctx, "c-1"), ErrNotFound))
}

func TestSearchCandidates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c-1", "Ada Lovelace", "job-1", model.StatusActive, base)
	seedCandidate(t, s, "c-2", "Grace Hopper", "job-1", model.StatusScheduled, base.Add(time.Minute))
	seedCandidate(t, s, "c-3", "Alan Turing", "job-2", model.StatusRejected, base.Add(2*time.Minute))
	seedCandidate(t, s, "c-4", "Ada_Byron", "job-2", model.StatusActive, base.Add(3*time.Minute))

	got, total, err := s.SearchCandidates(ctx, CandidateFilter{Statuses: []string{"Active", "Scheduled"}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, "c-4", got[0].ID)

	got, total, err = s.SearchCandidates(ctx, CandidateFilter{FullName: "aDa"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, got, 2)

	got, _, err = s.SearchCandidates(ctx, CandidateFilter{FullName: "a_b"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-4", got[0].ID)

	got, total, err = s.SearchCandidates(ctx, CandidateFilter{JobID: "job-2", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, got, 1)
	assert.Equal(t, "c-3", got[0].ID)
	assert.Len(t, got[0].PipelineHistory, 1)
}

func TestJob_CreateFindAndHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "u-1", Name: "Rita", Email: "Rita@Example.com", Role: model.RoleAdmin}))

	job := &model.Job{
		ID:             "job-1",
		Title:          "Backend Engineer",
		DescriptionURL: "https://jobs.example.com/1",
		Region:         []string{"EMEA"},
		Status:         model.JobStatusOpen,
		CreatedBy:      "u-1",
		History: []model.JobHistoryEntry{{
			Seq:     1,
			Action:  model.JobActionCreated,
			UserID:  "u-1",
			Changes: []model.FieldChange{{Field: "status", To: "Open"}, {Field: "title", To: "Backend Engineer"}},
		}},
	}
	require.NoError(t, s.CreateJob(ctx, job))

	found, err := s.FindJobByTitleAndURL(ctx, "Backend Engineer", "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", found.ID)

	_, err = s.FindJobByTitleAndURL(ctx, "Backend Engineer", "https://jobs.example.com/2")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.AppendJobHistory(ctx, &model.JobHistoryEntry{
		JobID:   "job-1",
		Action:  model.JobActionUpdated,
		UserID:  "u-1",
		Changes: []model.FieldChange{{Field: "clientName", From: "Acme", To: "Acme Inc"}},
	}))

	got, err := s.GetJob(ctx, "job-1", true)
	require.NoError(t, err)
	require.Len(t, got.History, 2)
	assert.Equal(t, model.JobActionCreated, got.History[0].Action)
	assert.Equal(t, 2, got.History[1].Seq)
	require.NotNil(t, got.History[1].User)
	assert.Equal(t, "rita@example.com", got.History[1].User.Email)
	assert.Equal(t, []string{"EMEA"}, []string(got.Region))
	require.Len(t, got.History[1].Changes, 1)
	assert.Equal(t, "Acme Inc", got.History[1].Changes[0].To)

	plain, err := s.GetJob(ctx, "job-1", false)
	require.NoError(t, err)
	assert.Empty(t, plain.History)
}

func TestJob_DeleteAndHistoryFeed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"job-1", "job-2"} {
		require.NoError(t, s.CreateJob(ctx, &model.Job{
			ID:     id,
			Title:  "Role " + id,
			Status: model.JobStatusOpen,
			History: []model.JobHistoryEntry{{
				Seq:       1,
				Action:    model.JobActionCreated,
				UserID:    "u-1",
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}},
		}))
	}
	require.NoError(t, s.AppendJobHistory(ctx, &model.JobHistoryEntry{
		JobID: "job-1", Action: model.JobActionUpdated, UserID: "u-2", CreatedAt: base.Add(3 * time.Hour),
	}))

	records, total, err := s.ListJobHistory(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, records, 3)
	assert.Equal(t, model.JobActionUpdated, records[0].Action)
	assert.Equal(t, "Role job-1", records[0].JobTitle)
	assert.Equal(t, "job-2", records[1].JobID)

	records, total, err = s.ListJobHistory(ctx, HistoryFilter{UserID: "u-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, records, 1)

	require.NoError(t, s.DeleteJob(ctx, "job-1"))
	_, total, err = s.ListJobHistory(ctx, HistoryFilter{JobID: "job-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.True(t, errors.Is(s.DeleteJob(ctx, "job-1"), ErrNotFound))

	jobs, total, err := s.ListJobs(ctx, JobFilter{Title: "job-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, jobs, 1)
}

func TestUsers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "u-1", Name: "Zed", Email: " Zed@Example.com ", Role: model.RoleUser}))
	require.NoError(t, s.CreateUser(ctx, &model.User{ID: "u-2", Name: "Amy", Email: "amy@example.com", Role: model.RoleAdmin, ResetTokenHash: "abc"}))

	err := s.CreateUser(ctx, &model.User{ID: "u-3", Name: "Dup", Email: "ZED@example.com", Role: model.RoleUser})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))

	u, err := s.GetUserByEmail(ctx, "ZED@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	u, err = s.GetUserByResetTokenHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "u-2", u.ID)

	_, err = s.GetUserByResetTokenHash(ctx, "")
	assert.True(t, errors.Is(err, ErrNotFound))

	users, total, err := s.ListUsers(ctx, UserFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Amy", users[0].Name)

	_, total, err = s.ListUsers(ctx, UserFilter{Role: string(model.RoleAdmin)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	require.NoError(t, s.DeleteUser(ctx, "u-1"))
	_, err = s.GetUser(ctx, "u-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTransaction_RollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *Store) error {
		require.NoError(t, tx.CreateUser(ctx, &model.User{ID: "u-1", Name: "A", Email: "a@example.com", Role: model.RoleUser}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetUser(ctx, "u-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}
