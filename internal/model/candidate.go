package model

import (
	"encoding/json"
	"time"
)

// Candidate is a person moving through the hiring pipeline of one job.
type Candidate struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName        string          `gorm:"not null;index" json:"fullName"`
	Email           string          `gorm:"not null" json:"email"`
	Phone           string          `json:"phone"`
	ResumeURL       string          `json:"resumeUrl"`
	CandidateType   CandidateType   `gorm:"type:varchar(16)" json:"candidateType"`
	Remarks         string          `json:"remarks"`
	JobID           string          `gorm:"type:varchar(36);index" json:"job"`
	Status          CandidateStatus `gorm:"type:varchar(32);index" json:"status"`
	PipelineStage   PipelineStage   `gorm:"type:varchar(16)" json:"pipelineStage"`
	RejRemarks      string          `json:"rej_remarks"`
	PipelineHistory []PipelineEntry `gorm:"foreignKey:CandidateID" json:"pipelineHistory"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DisplayStatus is the status shown to users: a candidate in the Selected
// stage always reads as Selected, whatever the stored status says.
func (c *Candidate) DisplayStatus() CandidateStatus {
	if c.PipelineStage == StageSelected {
		return StatusSelected
	}
	return c.Status
}

type candidateJSON Candidate

// MarshalJSON adds displayStatus next to the stored status.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		candidateJSON
		DisplayStatus CandidateStatus `json:"displayStatus"`
	}{candidateJSON(c), c.DisplayStatus()})
}

// PipelineEntry is one immutable record of the candidate's pipeline history.
// Seq preserves insertion order; rows are never updated.
type PipelineEntry struct {
	ID            uint            `gorm:"primaryKey;autoIncrement" json:"-"`
	CandidateID   string          `gorm:"type:varchar(36);not null;index:idx_pipeline_candidate_seq,priority:1" json:"-"`
	Seq           int             `gorm:"not null;index:idx_pipeline_candidate_seq,priority:2" json:"-"`
	ActionType    PipelineAction  `gorm:"type:varchar(16);not null" json:"actionType"`
	PipelineStage PipelineStage   `gorm:"type:varchar(16)" json:"pipelineStage"`
	Status        CandidateStatus `gorm:"type:varchar(32)" json:"status"`
	ActionBy      string          `json:"actionBy"`
	Date          time.Time       `json:"date"`
	Remarks       string          `json:"remarks,omitempty"`
}

// CreateCandidateRequest is the body of POST /api/candidates.
type CreateCandidateRequest struct {
	FullName      string          `json:"fullName" validate:"required"`
	Email         string          `json:"email" validate:"required,email"`
	Phone         string          `json:"phone"`
	ResumeURL     string          `json:"resumeUrl" validate:"required"`
	CandidateType CandidateType   `json:"candidateType" validate:"required,oneof=internal external"`
	Remarks       string          `json:"remarks"`
	JobID         string          `json:"job" validate:"required"`
	Status        CandidateStatus `json:"status" validate:"omitempty,oneof='To Be Scheduled' Scheduled Active Rejected Selected 'Awaiting Feedback' Others"`
	PipelineStage PipelineStage   `json:"pipelineStage" validate:"omitempty,oneof=Preliminary Technical Additional Client Selected"`
}

// CandidatePatch is the body of PATCH /api/candidates/:id. Nil fields are left
// untouched.
type CandidatePatch struct {
	FullName        *string          `json:"fullName" validate:"omitempty,min=1"`
	Email           *string          `json:"email" validate:"omitempty,email"`
	Phone           *string          `json:"phone"`
	ResumeURL       *string          `json:"resumeUrl"`
	CandidateType   *CandidateType   `json:"candidateType" validate:"omitempty,oneof=internal external"`
	Remarks         *string          `json:"remarks"`
	JobID           *string          `json:"job"`
	Status          *CandidateStatus `json:"status" validate:"omitempty,oneof='To Be Scheduled' Scheduled Active Rejected Selected 'Awaiting Feedback' Others"`
	PipelineStage   *PipelineStage   `json:"pipelineStage" validate:"omitempty,oneof=Preliminary Technical Additional Client Selected"`
	RejRemarks      *string          `json:"rej_remarks"`
	PipelineHistory []PipelineEntry  `json:"pipelineHistory" validate:"omitempty,dive"`
}

// RemarksRequest is the body of the reject and reactivate endpoints.
type RemarksRequest struct {
	RejRemarks string `json:"rej_remarks"`
}

// CandidateSearchQuery holds the filters of GET /api/candidates/search.
type CandidateSearchQuery struct {
	FullName string `query:"fullName"`
	Status   string `query:"status"`
	JobID    string `query:"jobId"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

// CandidatePage is a page of search results.
type CandidatePage struct {
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	TotalPages int         `json:"totalPages"`
	Candidates []Candidate `json:"candidates"`
}
