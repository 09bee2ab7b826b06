package postgresql

import (
	"context"
	"fmt"

	"github.com/kintai-works/kintai-backend-go/internal/domain/user"
	"github.com/kintai-works/kintai-backend-go/internal/pkg/database"
)

type employeeCodeRepository struct {
	db *database.DB
}

// ListCodes implements user.EmployeeCodeRepository.
func (r *employeeCodeRepository) ListCodes(ctx context.Context, tenantID string) (user.EmployeeCodes, error) {
	q := GetQuerier(ctx, r.db)

	// lookup_key holds either an email address or a display name
	rows, err := q.Query(ctx, `SELECT lookup_key, code FROM employee_codes WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query employee codes: %w", err)
	}
	defer rows.Close()

	codes := make(user.EmployeeCodes)
	for rows.Next() {
		var key, code string
		if err := rows.Scan(&key, &code); err != nil {
			return nil, fmt.Errorf("failed to scan employee code: %w", err)
		}
		codes[key] = code
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employee codes: %w", err)
	}

	return codes, nil
}

func NewEmployeeCodeRepository(db *database.DB) user.EmployeeCodeRepository {
	return &employeeCodeRepository{db: db}
}
