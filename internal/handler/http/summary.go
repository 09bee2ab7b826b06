package http

import (
	"net/http"
	"strconv"

	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/handler/http/response"
)

type SummaryHandler interface {
	GetMonthlySummary(w http.ResponseWriter, r *http.Request)
	ExportCSV(w http.ResponseWriter, r *http.Request)
	ListPeriods(w http.ResponseWriter, r *http.Request)
}

type summaryHandlerImpl struct {
	summaryService summary.SummaryService
}

func NewSummaryHandler(summaryService summary.SummaryService) SummaryHandler {
	return &summaryHandlerImpl{
		summaryService: summaryService,
	}
}

// GetMonthlySummary implements SummaryHandler.
// Query params: period (YYYY-MM, defaults to the current period), employee_id, site_name
func (h *summaryHandlerImpl) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	req := parseSummaryRequest(r)

	result, err := h.summaryService.GetMonthlySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ExportCSV implements SummaryHandler.
// Query params: the GetMonthlySummary ones plus format (general or payroll)
func (h *summaryHandlerImpl) ExportCSV(w http.ResponseWriter, r *http.Request) {
	req := summary.ExportRequest{
		MonthlySummaryRequest: parseSummaryRequest(r),
		Format:                r.URL.Query().Get("format"),
	}

	file, err := h.summaryService.ExportCSV(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Attachment(w, file.FileName, file.ContentType, file.Data)
}

// ListPeriods implements SummaryHandler.
func (h *summaryHandlerImpl) ListPeriods(w http.ResponseWriter, r *http.Request) {
	count := 0
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			response.BadRequest(w, "count must be a number", nil)
			return
		}
		count = n
	}

	result, err := h.summaryService.ListPeriods(r.Context(), count)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func parseSummaryRequest(r *http.Request) summary.MonthlySummaryRequest {
	query := r.URL.Query()
	return summary.MonthlySummaryRequest{
		Period:     query.Get("period"),
		EmployeeID: query.Get("employee_id"),
		SiteName:   query.Get("site_name"),
	}
}
