package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeriod_Contains(t *testing.T) {
	p := Period{YearMonth: "2025-01", StartDate: "2024-12-21", EndDate: "2025-01-20"}

	assert.True(t, p.Contains("2024-12-21"))
	assert.True(t, p.Contains("2025-01-01"))
	assert.True(t, p.Contains("2025-01-20"))
	assert.False(t, p.Contains("2024-12-20"))
	assert.False(t, p.Contains("2025-01-21"))
}

func TestExportRequest_Validate(t *testing.T) {
	req := ExportRequest{}
	assert.NoError(t, req.Validate())
	assert.Equal(t, FormatGeneral, req.Format)

	req = ExportRequest{MonthlySummaryRequest: MonthlySummaryRequest{Period: "2025-13"}, Format: "xlsx"}
	err := req.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "period")
	assert.Contains(t, err.Error(), "format")
}
