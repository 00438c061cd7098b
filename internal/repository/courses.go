package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/nust-timetable/timetable-manager/backend/internal/domain"
)

const courseColumns = `id, code, name, department, credits, year_level, semester, theory_lecturer, practical_lecturer, color_code`

func courseDst(c *domain.Course) []any {
	return []any{
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Department,
		&c.Credits,
		&c.YearLevel,
		&c.Semester,
		&c.TheoryLecturer,
		&c.PracticalLecturer,
		&c.Color,
	}
}

func (r *Repository) GetCourses(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	conds := []string{"TRUE"}
	params := []any{}

	if filter.YearLevel != nil {
		params = append(params, *filter.YearLevel)
		conds = append(conds, fmt.Sprintf("year_level = $%d", len(params)))
	}
	if filter.Semester != nil {
		params = append(params, *filter.Semester)
		conds = append(conds, fmt.Sprintf("semester = $%d", len(params)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		params = append(params, "%"+search+"%")
		n := len(params)
		conds = append(conds, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR theory_lecturer ILIKE $%d OR practical_lecturer ILIKE $%d)", n, n, n, n))
	}

	query := `SELECT ` + courseColumns + ` FROM courses WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY year_level, code`

	rows, err := r.dbpool.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []*domain.Course{}
	for rows.Next() {
		var c domain.Course
		if err := rows.Scan(courseDst(&c)...); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *Repository) CreateCourse(ctx context.Context, c *domain.Course) error {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	query := `
		INSERT INTO courses (code, name, department, credits, year_level, semester, theory_lecturer, practical_lecturer, color_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			department = EXCLUDED.department,
			credits = EXCLUDED.credits,
			year_level = EXCLUDED.year_level,
			semester = EXCLUDED.semester,
			theory_lecturer = EXCLUDED.theory_lecturer,
			practical_lecturer = EXCLUDED.practical_lecturer,
			color_code = EXCLUDED.color_code
		RETURNING id
	`

	params := []any{c.Code, c.Name, c.Department, c.Credits, c.YearLevel, c.Semester, c.TheoryLecturer, c.PracticalLecturer, c.Color}
	return r.dbpool.QueryRowContext(ctx, query, params...).Scan(&c.ID)
}
