package summary

import (
	"github.com/kintai-works/kintai-backend-go/internal/pkg/validator"
)

const (
	FormatGeneral = "general"
	FormatPayroll = "payroll"
)

type MonthlySummaryRequest struct {
	Period     string `json:"period"` // YYYY-MM, empty for the current period
	EmployeeID string `json:"employee_id"`
	SiteName   string `json:"site_name"`
}

func (r *MonthlySummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Period != "" && !validator.IsValidYearMonth(r.Period) {
		errs = append(errs, validator.ValidationError{
			Field:   "period",
			Message: "period must be in YYYY-MM format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsFiltered reports whether the request narrows the summary to a subset of records.
func (r *MonthlySummaryRequest) IsFiltered() bool {
	return r.EmployeeID != "" || r.SiteName != ""
}

type ExportRequest struct {
	MonthlySummaryRequest
	Format string `json:"format"`
}

func (r *ExportRequest) Validate() error {
	var errs validator.ValidationErrors

	if err := r.MonthlySummaryRequest.Validate(); err != nil {
		errs = append(errs, err.(validator.ValidationErrors)...)
	}

	if r.Format == "" {
		r.Format = FormatGeneral
	}
	if !validator.IsInSlice(r.Format, []string{FormatGeneral, FormatPayroll}) {
		errs = append(errs, validator.ValidationError{
			Field:   "format",
			Message: "format must be one of: general, payroll",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

type PeriodListResponse struct {
	Current string         `json:"current"`
	Periods []PeriodOption `json:"periods"`
}
