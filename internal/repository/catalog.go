// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/regdesk/internal/models"
	"github.com/vinovest/sqlx"
)

// CreateJobRole inserts a job role.
func (r *Repository) CreateJobRole(ctx context.Context, role *models.JobRole) error {
	role.CreatedAt = now()
	res, err := r.ext.ExecContext(ctx,
		`INSERT INTO job_roles (title, description, created_at) VALUES (?, ?, ?)`,
		role.Title, role.Description, role.CreatedAt)
	if err != nil {
		return wrapError(err)
	}
	role.ID, err = res.LastInsertId()
	return err
}

// GetJobRole retrieves a job role by ID.
func (r *Repository) GetJobRole(ctx context.Context, id int64) (*models.JobRole, error) {
	var role models.JobRole
	if err := sqlx.GetContext(ctx, r.ext, &role, `SELECT * FROM job_roles WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &role, nil
}

// ListJobRoles returns all job roles ordered by title.
func (r *Repository) ListJobRoles(ctx context.Context) ([]models.JobRole, error) {
	roles := []models.JobRole{}
	if err := sqlx.SelectContext(ctx, r.ext, &roles, `SELECT * FROM job_roles ORDER BY title`); err != nil {
		return nil, err
	}
	return roles, nil
}

// CreateCourse inserts a course under a job role.
func (r *Repository) CreateCourse(ctx context.Context, course *models.Course) error {
	course.CreatedAt = now()
	res, err := r.ext.ExecContext(ctx,
		`INSERT INTO courses (job_role_id, title, description, created_at) VALUES (?, ?, ?, ?)`,
		course.JobRoleID, course.Title, course.Description, course.CreatedAt)
	if err != nil {
		return wrapError(err)
	}
	course.ID, err = res.LastInsertId()
	return err
}

// GetCourse retrieves a course by ID.
func (r *Repository) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := sqlx.GetContext(ctx, r.ext, &course, `SELECT * FROM courses WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &course, nil
}

// ListCourses returns courses ordered by title, limited to one job role when
// jobRoleID is non-zero.
func (r *Repository) ListCourses(ctx context.Context, jobRoleID int64) ([]models.Course, error) {
	courses := []models.Course{}
	query := `SELECT * FROM courses`
	var args []any
	if jobRoleID != 0 {
		query += ` WHERE job_role_id = ?`
		args = append(args, jobRoleID)
	}
	query += ` ORDER BY title`

	if err := sqlx.SelectContext(ctx, r.ext, &courses, query, args...); err != nil {
		return nil, err
	}
	return courses, nil
}
