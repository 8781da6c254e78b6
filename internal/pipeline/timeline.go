package pipeline

import (
	"sort"
	"time"

	"github.com/fusecpt/ats/internal/model"
)

var titles = map[model.PipelineAction]string{
	model.ActionAdded:       "Candidate added",
	model.ActionMoved:       "Status updated",
	model.ActionRejected:    "Candidate rejected",
	model.ActionReactivated: "Candidate reactivated",
}

// Transition is how one field of an entry is shown. From is empty when only
// the current value is rendered.
type Transition struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Struck bool   `json:"struck,omitempty"`
}

// TimelineItem is the display form of a pipeline history entry.
type TimelineItem struct {
	ActionType    model.PipelineAction `json:"actionType"`
	Title         string               `json:"title"`
	ActionBy      string               `json:"actionBy"`
	Date          time.Time            `json:"date"`
	Remarks       string               `json:"remarks,omitempty"`
	PipelineStage Transition           `json:"pipelineStage"`
	Status        Transition           `json:"status"`
}

// Title returns the display title of an action.
func Title(action model.PipelineAction) string {
	return titles[action]
}

// Timeline projects history into display items, newest first. The input is
// not modified.
func Timeline(history []model.PipelineEntry) []TimelineItem {
	sorted := make([]model.PipelineEntry, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Seq > sorted[j].Seq
		}
		return sorted[i].Date.After(sorted[j].Date)
	})

	items := make([]TimelineItem, 0, len(sorted))
	for i, e := range sorted {
		item := TimelineItem{
			ActionType:    e.ActionType,
			Title:         Title(e.ActionType),
			ActionBy:      e.ActionBy,
			Date:          e.Date,
			Remarks:       e.Remarks,
			PipelineStage: Transition{To: string(e.PipelineStage)},
			Status:        Transition{To: string(e.Status)},
		}

		// sorted is newest first, so the chronological predecessor is next.
		var prev *model.PipelineEntry
		if i+1 < len(sorted) {
			prev = &sorted[i+1]
		}

		if prev != nil {
			switch e.ActionType {
			case model.ActionMoved, model.ActionReactivated:
				if prev.PipelineStage != e.PipelineStage || prev.Status != e.Status {
					item.PipelineStage.From = string(prev.PipelineStage)
					item.Status.From = string(prev.Status)
				}
			case model.ActionRejected:
				item.PipelineStage.From = string(prev.PipelineStage)
				item.PipelineStage.Struck = true
				item.Status.From = string(prev.Status)
				item.Status.Struck = true
			}
		}

		items = append(items, item)
	}
	return items
}
