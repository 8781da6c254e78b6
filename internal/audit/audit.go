// Package audit builds the field level history of jobs.
package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fusecpt/ats/internal/model"
)

// Created returns the changes recorded when a job is created. Only status and
// title are recorded, both with a nil From.
func Created(job *model.Job) []model.FieldChange {
	return []model.FieldChange{
		{Field: "status", From: nil, To: string(job.Status)},
		{Field: "title", From: nil, To: job.Title},
	}
}

// Apply compares every field present in patch with the job, records a change
// for each value whose string form differs and writes the new value into job.
// Fields are visited in a fixed order so the change list is deterministic.
func Apply(job *model.Job, patch *model.JobPatch) []model.FieldChange {
	var changes []model.FieldChange

	diff := func(field string, from, to interface{}, set func()) {
		if Coerce(from) == Coerce(to) {
			return
		}
		changes = append(changes, model.FieldChange{Field: field, From: from, To: to})
		set()
	}

	if p := patch.Title; p != nil {
		diff("title", job.Title, *p, func() { job.Title = *p })
	}
	if p := patch.DescriptionURL; p != nil {
		diff("descriptionUrl", job.DescriptionURL, *p, func() { job.DescriptionURL = *p })
	}
	if p := patch.ClientName; p != nil {
		diff("clientName", job.ClientName, *p, func() { job.ClientName = *p })
	}
	if p := patch.ClientLogo; p != nil {
		diff("clientLogo", job.ClientLogo, *p, func() { job.ClientLogo = *p })
	}
	if p := patch.ClientTimezone; p != nil {
		diff("clientTimezone", job.ClientTimezone, *p, func() { job.ClientTimezone = *p })
	}
	if p := patch.ContractType; p != nil {
		diff("contractType", string(job.ContractType), string(*p), func() { job.ContractType = *p })
	}
	if p := patch.OverlapRequirement; p != nil {
		diff("overlapRequirement", string(job.OverlapRequirement), string(*p), func() { job.OverlapRequirement = *p })
	}
	if p := patch.Region; p != nil {
		old := []string(job.Region)
		if old == nil {
			old = []string{}
		}
		next := append([]string{}, []string(*p)...)
		diff("region", old, next, func() { job.Region = next })
	}
	if p := patch.MinimumExperience; p != nil {
		diff("minimumExperience", job.MinimumExperience, *p, func() { job.MinimumExperience = *p })
	}
	if p := patch.Status; p != nil {
		diff("status", string(job.Status), string(*p), func() { job.Status = *p })
	}
	if p := patch.Remarks; p != nil {
		diff("remarks", job.Remarks, *p, func() { job.Remarks = *p })
	}

	return changes
}

// Coerce renders a value the way the comparison sees it: lists join with a
// comma, numbers drop trailing zeros and nil becomes "null".
func Coerce(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
