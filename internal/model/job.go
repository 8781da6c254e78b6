package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Job is a job posting owned by a client.
type Job struct {
	ID                 string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title              string                      `gorm:"not null;index:idx_job_title_url,priority:1" json:"title"`
	DescriptionURL     string                      `gorm:"index:idx_job_title_url,priority:2" json:"descriptionUrl"`
	ClientName         string                      `json:"clientName"`
	ClientLogo         string                      `json:"clientLogo"`
	ClientTimezone     string                      `json:"clientTimezone"`
	ContractType       ContractType                `gorm:"type:varchar(16)" json:"contractType"`
	OverlapRequirement OverlapRequirement          `gorm:"type:varchar(16)" json:"overlapRequirement"`
	Region             datatypes.JSONSlice[string] `json:"region"`
	MinimumExperience  float64                     `json:"minimumExperience"`
	Status             JobStatus                   `gorm:"type:varchar(16);index" json:"status"`
	Remarks            string                      `json:"remarks"`
	CreatedBy          string                      `gorm:"type:varchar(36)" json:"createdBy"`
	History            []JobHistoryEntry           `gorm:"foreignKey:JobID" json:"history"`
	CreatedAt          time.Time                   `json:"createdAt"`
	UpdatedAt          time.Time                   `json:"updatedAt"`
}

// FieldChange records one field transition. From is nil for fields set at
// creation.
type FieldChange struct {
	Field string      `json:"field"`
	From  interface{} `json:"from"`
	To    interface{} `json:"to"`
}

// JobHistoryEntry is one immutable audit record of a job.
type JobHistoryEntry struct {
	ID        uint                             `gorm:"primaryKey;autoIncrement" json:"-"`
	JobID     string                           `gorm:"type:varchar(36);not null;index:idx_job_history_job_seq,priority:1" json:"-"`
	Seq       int                              `gorm:"not null;index:idx_job_history_job_seq,priority:2" json:"-"`
	Action    JobAction                        `gorm:"type:varchar(16);not null" json:"action"`
	UserID    string                           `gorm:"type:varchar(36);index" json:"-"`
	User      *User                            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Changes   datatypes.JSONSlice[FieldChange] `json:"changes"`
	CreatedAt time.Time                        `gorm:"index" json:"createdAt"`
}

// CreateJobRequest is the body of POST /api/job/create. It arrives as
// multipart form data, so Region is normalised by the handler.
type CreateJobRequest struct {
	Title              string             `json:"title" form:"title" validate:"required"`
	DescriptionURL     string             `json:"descriptionUrl" form:"descriptionUrl" validate:"required"`
	ClientName         string             `json:"clientName" form:"clientName" validate:"required"`
	ClientLogo         string             `json:"clientLogo" form:"clientLogo"`
	ClientTimezone     string             `json:"clientTimezone" form:"clientTimezone" validate:"required"`
	ContractType       ContractType       `json:"contractType" form:"contractType" validate:"required,oneof=Full-Time Part-Time Contract"`
	OverlapRequirement OverlapRequirement `json:"overlapRequirement" form:"overlapRequirement" validate:"required,oneof=Complete Partial None"`
	Region             RegionList         `json:"region" form:"-" validate:"required,min=1"`
	MinimumExperience  float64            `json:"minimumExperience" form:"minimumExperience" validate:"min=0"`
	Status             JobStatus          `json:"status" form:"status" validate:"omitempty,oneof=Open On-Hold 'Closed Won' 'Closed Lost'"`
	Remarks            string             `json:"remarks" form:"remarks"`
}

// RegionList accepts a JSON array, a single string or a comma separated
// string.
type RegionList []string

func (r *RegionList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*r = ParseRegions(list...)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*r = ParseRegions(single)
	return nil
}

// ParseRegions flattens form or query values into a region list. Each value
// may itself be a comma separated list or a JSON array.
func ParseRegions(values ...string) RegionList {
	out := RegionList{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "[") {
			var list []string
			if err := json.Unmarshal([]byte(v), &list); err == nil {
				out = append(out, ParseRegions(list...)...)
				continue
			}
		}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// JobPatch is the body of PATCH /api/job/:id. Nil fields are not compared.
type JobPatch struct {
	Title              *string             `json:"title" validate:"omitempty,min=1"`
	DescriptionURL     *string             `json:"descriptionUrl"`
	ClientName         *string             `json:"clientName"`
	ClientLogo         *string             `json:"clientLogo"`
	ClientTimezone     *string             `json:"clientTimezone"`
	ContractType       *ContractType       `json:"contractType" validate:"omitempty,oneof=Full-Time Part-Time Contract"`
	OverlapRequirement *OverlapRequirement `json:"overlapRequirement" validate:"omitempty,oneof=Complete Partial None"`
	Region             *RegionList         `json:"region"`
	MinimumExperience  *float64            `json:"minimumExperience" validate:"omitempty,min=0"`
	Status             *JobStatus          `json:"status" validate:"omitempty,oneof=Open On-Hold 'Closed Won' 'Closed Lost'"`
	Remarks            *string             `json:"remarks"`
}

// JobListQuery holds the filters of GET /api/job.
type JobListQuery struct {
	Status string `query:"status"`
	Title  string `query:"title"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// JobPage is a page of jobs.
type JobPage struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Jobs       []Job `json:"jobs"`
}

// JobHistoryQuery holds the filters of GET /api/job/history.
type JobHistoryQuery struct {
	JobID  string `query:"jobId"`
	UserID string `query:"userId"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// JobHistoryRow is one flattened entry of the cross-job activity feed.
type JobHistoryRow struct {
	JobID     string        `json:"jobId"`
	JobTitle  string        `json:"jobTitle"`
	Action    JobAction     `json:"action"`
	User      *UserSummary  `json:"user"`
	Changes   []FieldChange `json:"changes"`
	CreatedAt time.Time     `json:"createdAt"`
}

// JobHistoryPage is a page of the activity feed.
type JobHistoryPage struct {
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	History    []JobHistoryRow `json:"history"`
}
