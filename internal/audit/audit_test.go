package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fusecpt/ats/internal/model"
)

func strPtr(s string) *string { return &s }

func backendJob() *model.Job {
	return &model.Job{
		Title:              "Backend Engineer",
		DescriptionURL:     "https://x.co/a",
		ClientName:         "Acme",
		ClientTimezone:     "UTC",
		ContractType:       model.ContractFullTime,
		OverlapRequirement: model.OverlapComplete,
		Region:             []string{"USA"},
		MinimumExperience:  3,
		Status:             model.JobStatusOpen,
	}
}

func TestCreated(t *testing.T) {
	changes := Created(backendJob())

	require.Len(t, changes, 2)
	assert.Equal(t, model.FieldChange{Field: "status", From: nil, To: "Open"}, changes[0])
	assert.Equal(t, model.FieldChange{Field: "title", From: nil, To: "Backend Engineer"}, changes[1])
}

func TestApply_SingleField(t *testing.T) {
	job := backendJob()
	changes := Apply(job, &model.JobPatch{ClientName: strPtr("Acme Inc")})

	require.Len(t, changes, 1)
	assert.Equal(t, model.FieldChange{Field: "clientName", From: "Acme", To: "Acme Inc"}, changes[0])
	assert.Equal(t, "Acme Inc", job.ClientName)
}

func TestApply_SameValuesProduceNoChanges(t *testing.T) {
	job := backendJob()
	region := model.RegionList{"USA"}
	exp := 3.0
	status := model.JobStatusOpen

	changes := Apply(job, &model.JobPatch{
		Title:             strPtr("Backend Engineer"),
		Region:            &region,
		MinimumExperience: &exp,
		Status:            &status,
	})

	assert.Empty(t, changes)
}

func TestApply_NChangedFields(t *testing.T) {
	job := backendJob()
	region := model.RegionList{"USA", "EU"}
	exp := 5.0
	contract := model.ContractContract

	changes := Apply(job, &model.JobPatch{
		Title:             strPtr("Senior Backend Engineer"),
		ClientName:        strPtr("Acme"),
		Region:            &region,
		MinimumExperience: &exp,
		ContractType:      &contract,
	})

	require.Len(t, changes, 4)
	fields := []string{}
	for _, c := range changes {
		fields = append(fields, c.Field)
	}
	assert.Equal(t, []string{"title", "contractType", "region", "minimumExperience"}, fields)
	assert.Equal(t, []string{"USA", "EU"}, []string(job.Region))
	assert.Equal(t, 5.0, job.MinimumExperience)
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, "3", Coerce(3.0))
	assert.Equal(t, "2.5", Coerce(2.5))
	assert.Equal(t, "USA,EU", Coerce([]string{"USA", "EU"}))
	assert.Equal(t, "null", Coerce(nil))
	assert.Equal(t, "", Coerce([]string{}))
}
