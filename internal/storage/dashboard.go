package storage

import "context"

// DashboardSummary feeds the home page pie charts.
type DashboardSummary struct {
	TotalStudents    int            `json:"totalStudents"`
	StatusBreakdown  map[string]int `json:"statusBreakdown"`
	GraduatedCount   int            `json:"graduatedCount"`
	UngraduatedCount int            `json:"ungraduatedCount"`
}

// DashboardSummary counts students per status and the graduated split.
func (s *Store) DashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	sum := &DashboardSummary{StatusBreakdown: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT student_status, COUNT(*)
		FROM students
		GROUP BY student_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		sum.StatusBreakdown[status] = count
		sum.TotalStudents += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM students
		WHERE graduated_on IS NOT NULL AND graduated_on != '-' AND graduated_on != ''`).
		Scan(&sum.GraduatedCount)
	if err != nil {
		return nil, err
	}
	sum.UngraduatedCount = sum.TotalStudents - sum.GraduatedCount
	return sum, nil
}
