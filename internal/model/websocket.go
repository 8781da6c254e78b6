package model

// WebSocket message types
const (
	WSMessageTypeBoard = "board"
	WSMessageTypePing  = "ping"
	WSMessageTypePong  = "pong"
)

// Board event names
const (
	BoardEventAdded       = "candidate.added"
	BoardEventMoved       = "candidate.moved"
	BoardEventUpdated     = "candidate.updated"
	BoardEventRejected    = "candidate.rejected"
	BoardEventReactivated = "candidate.reactivated"
	BoardEventDeleted     = "candidate.deleted"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSBoardMessage notifies board subscribers of a candidate change on a job.
type WSBoardMessage struct {
	Type        string         `json:"type"`
	Event       string         `json:"event"`
	JobID       string         `json:"jobId"`
	CandidateID string         `json:"candidateId"`
	Candidate   *Candidate     `json:"candidate,omitempty"`
	Entry       *PipelineEntry `json:"entry,omitempty"`
}
