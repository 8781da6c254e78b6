package model

// Pipeline stages
type PipelineStage string

const (
	StagePreliminary PipelineStage = "Preliminary"
	StageTechnical   PipelineStage = "Technical"
	StageAdditional  PipelineStage = "Additional"
	StageClient      PipelineStage = "Client"
	StageSelected    PipelineStage = "Selected"
)

// ValidPipelineStages is ordered the way the board renders its columns.
var ValidPipelineStages = []PipelineStage{
	StagePreliminary, StageTechnical, StageAdditional, StageClient, StageSelected,
}

// Candidate statuses
type CandidateStatus string

const (
	StatusToBeScheduled    CandidateStatus = "To Be Scheduled"
	StatusScheduled        CandidateStatus = "Scheduled"
	StatusActive           CandidateStatus = "Active"
	StatusRejected         CandidateStatus = "Rejected"
	StatusSelected         CandidateStatus = "Selected"
	StatusAwaitingFeedback CandidateStatus = "Awaiting Feedback"
	StatusOthers           CandidateStatus = "Others"
)

var ValidCandidateStatuses = []CandidateStatus{
	StatusToBeScheduled, StatusScheduled, StatusActive, StatusRejected,
	StatusSelected, StatusAwaitingFeedback, StatusOthers,
}

// Candidate types
type CandidateType string

const (
	CandidateInternal CandidateType = "internal"
	CandidateExternal CandidateType = "external"
)

// Pipeline history action types
type PipelineAction string

const (
	ActionAdded       PipelineAction = "added"
	ActionMoved       PipelineAction = "moved"
	ActionRejected    PipelineAction = "rejected"
	ActionReactivated PipelineAction = "reactivated"
)

// Job contract types
type ContractType string

const (
	ContractFullTime ContractType = "Full-Time"
	ContractPartTime ContractType = "Part-Time"
	ContractContract ContractType = "Contract"
)

var ValidContractTypes = []ContractType{ContractFullTime, ContractPartTime, ContractContract}

// Timezone overlap requirements
type OverlapRequirement string

const (
	OverlapComplete OverlapRequirement = "Complete"
	OverlapPartial  OverlapRequirement = "Partial"
	OverlapNone     OverlapRequirement = "None"
)

var ValidOverlapRequirements = []OverlapRequirement{OverlapComplete, OverlapPartial, OverlapNone}

// Job statuses
type JobStatus string

const (
	JobStatusOpen       JobStatus = "Open"
	JobStatusOnHold     JobStatus = "On-Hold"
	JobStatusClosedWon  JobStatus = "Closed Won"
	JobStatusClosedLost JobStatus = "Closed Lost"
)

var ValidJobStatuses = []JobStatus{JobStatusOpen, JobStatusOnHold, JobStatusClosedWon, JobStatusClosedLost}

// Job history actions
type JobAction string

const (
	JobActionCreated JobAction = "created"
	JobActionUpdated JobAction = "updated"
)

// User roles
type Role string

const (
	RoleSuperAdmin Role = "super-admin"
	RoleAdmin      Role = "admin"
	RoleUser       Role = "user"
)

var ValidRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleUser}

// IsValidStage reports whether s is one of the five pipeline stages.
func IsValidStage(s PipelineStage) bool {
	for _, v := range ValidPipelineStages {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s is a known candidate status.
func IsValidStatus(s CandidateStatus) bool {
	for _, v := range ValidCandidateStatuses {
		if v == s {
			return true
		}
	}
	return false
}
