package summary

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/kintai-works/kintai-backend-go/internal/domain/summary"
	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
)

// utf8BOM lets spreadsheet applications detect the encoding of the file.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type generalRow struct {
	EmployeeName      string  `csv:"従業員名"`
	Email             string  `csv:"メールアドレス"`
	NormalHours       float64 `csv:"通常勤務(h)"`
	NightOnlyHours    float64 `csv:"夜間勤務(h)"`
	ThroughNightHours float64 `csv:"通し夜間(h)"`
	HolidayHours      float64 `csv:"休日出勤(h)"`
	OvertimeHours     float64 `csv:"残業(h)"`
	BreakHours        float64 `csv:"休憩(h)"`
	TotalHours        float64 `csv:"合計(h)"`
	WorkDays          int     `csv:"出勤日数"`
	HolidayWorkDays   int     `csv:"休日出勤日数"`
	NightWorkDays     int     `csv:"夜間勤務日数"`
	ThroughNightDays  int     `csv:"通し夜間日数"`
	AbsenceDays       int     `csv:"欠勤日数"`
	PaidLeaveDays     int     `csv:"有給日数"`
	CompensatoryDays  int     `csv:"代休日数"`
}

type payrollRow struct {
	EmployeeCode     string  `csv:"従業員コード"`
	WorkDays         int     `csv:"出勤日数"`
	HolidayWorkDays  int     `csv:"休日出勤日数"`
	AbsenceDays      int     `csv:"欠勤日数"`
	OvertimeHours    float64 `csv:"残業時間"`
	CompensatoryDays int     `csv:"代休"`
	PaidLeaveDays    int     `csv:"有給休暇"`
	NightWorkDays    int     `csv:"夜間勤務日数"`
	ThroughNightDays int     `csv:"通し夜間勤務"`
}

// GeneralCSV renders every summary column for spreadsheet use.
func GeneralCSV(summaries []summary.EmployeeMonthlySummary) ([]byte, error) {
	if len(summaries) == 0 {
		return nil, summary.ErrNothingToExport
	}

	rows := make([]generalRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, generalRow{
			EmployeeName:      s.EmployeeName,
			Email:             s.Email,
			NormalHours:       s.NormalHours,
			NightOnlyHours:    s.NightOnlyHours,
			ThroughNightHours: s.ThroughNightHours,
			HolidayHours:      s.HolidayHours,
			OvertimeHours:     s.OvertimeHours,
			BreakHours:        s.BreakHours,
			TotalHours:        s.TotalHours,
			WorkDays:          s.WorkDays,
			HolidayWorkDays:   s.HolidayWorkDays,
			NightWorkDays:     s.NightWorkDays,
			ThroughNightDays:  s.ThroughNightDays,
			AbsenceDays:       s.AbsenceDays,
			PaidLeaveDays:     s.PaidLeaveDays,
			CompensatoryDays:  s.CompensatoryDays,
		})
	}
	return marshalQuoted(&rows)
}

// PayrollCSV renders the import layout of the payroll software, keyed by employee code.
func PayrollCSV(summaries []summary.EmployeeMonthlySummary, codes user.EmployeeCodes) ([]byte, error) {
	if len(summaries) == 0 {
		return nil, summary.ErrNothingToExport
	}

	rows := make([]payrollRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, payrollRow{
			EmployeeCode:     EmployeeCode(s, codes),
			WorkDays:         s.WorkDays,
			HolidayWorkDays:  s.HolidayWorkDays,
			AbsenceDays:      s.AbsenceDays,
			OvertimeHours:    s.OvertimeHours,
			CompensatoryDays: s.CompensatoryDays,
			PaidLeaveDays:    s.PaidLeaveDays,
			NightWorkDays:    s.NightWorkDays,
			ThroughNightDays: s.ThroughNightDays,
		})
	}
	return marshalQuoted(&rows)
}

// EmployeeCode resolves the payroll code of an employee: the code registered
// for the email, then for the display name, then the local part of the email,
// then the display name itself.
func EmployeeCode(s summary.EmployeeMonthlySummary, codes user.EmployeeCodes) string {
	if code := codes[s.Email]; s.Email != "" && code != "" {
		return code
	}
	if code := codes[s.EmployeeName]; code != "" {
		return code
	}
	if local, _, _ := strings.Cut(s.Email, "@"); local != "" {
		return local
	}
	return s.EmployeeName
}

func marshalQuoted(rows any) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := &quotedWriter{buf: &buf}
	if err := gocsv.MarshalCSV(rows, w); err != nil {
		return nil, fmt.Errorf("failed to marshal csv: %w", err)
	}
	return buf.Bytes(), nil
}

// quotedWriter quotes every field and separates rows with a bare "\n" with no
// newline after the last row.
type quotedWriter struct {
	buf  *bytes.Buffer
	rows int
}

func (w *quotedWriter) Write(row []string) error {
	if w.rows > 0 {
		w.buf.WriteByte('\n')
	}
	for i, field := range row {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.buf.WriteByte('"')
		w.buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.buf.WriteByte('"')
	}
	w.rows++
	return nil
}

func (w *quotedWriter) Flush() {}

func (w *quotedWriter) Error() error { return nil }
