// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/auth"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

type selectCourseRequest struct {
	JobRoleID int64 `json:"jobRoleId" form:"jobRoleId"`
	CourseID  int64 `json:"courseId" form:"courseId"`
}

// UpdateCCCStatus stores the CCC status of the current user together with an
// uploaded certificate or a reference returned by /upload.
func (h *Handlers) UpdateCCCStatus(c echo.Context) error {
	ctx := c.Request().Context()
	account := auth.GetAccount(ctx)

	status := strings.TrimSpace(c.FormValue("cccStatus"))
	if status == "" {
		return apperror.Validation("CCC status is required.")
	}

	certificate := strings.TrimSpace(c.FormValue("cccCertificate"))
	if fh, err := c.FormFile("cccCertificate"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return apperror.Dependency("Failed to store documents.", err)
		}
		defer f.Close()

		certificate, err = h.Store.Save(ctx, "cccCertificate", fh.Filename, f, fh.Size, fh.Header.Get(echo.HeaderContentType))
		if err != nil {
			return apperror.Dependency("Failed to store documents.", err)
		}
	} else if certificate != "" {
		ok, err := h.Store.Exists(ctx, certificate)
		if err != nil {
			return apperror.Dependency("Failed to store documents.", err)
		}
		if !ok {
			return apperror.Validation("Invalid certificate reference.")
		}
	}

	if err := h.Repo.UpdateCCC(ctx, account.ID, status, certificate); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "CCC status updated.", envelope{
		"cccStatus":      status,
		"cccCertificate": certificate,
	})
}

// CCCStatus returns the CCC status of the current user.
func (h *Handlers) CCCStatus(c echo.Context) error {
	account := auth.GetAccount(c.Request().Context())
	return respond(c, http.StatusOK, "", envelope{
		"cccStatus":      account.CCCStatus,
		"cccCertificate": account.CCCCertificate,
	})
}

// DashboardJobRoles lists the job roles a user can pick from.
func (h *Handlers) DashboardJobRoles(c echo.Context) error {
	return h.ListJobRoles(c)
}

// SearchCourses lists the courses of a job role, filtered by a
// case-insensitive title match on q.
func (h *Handlers) SearchCourses(c echo.Context) error {
	jobRoleID, err := strconv.ParseInt(c.QueryParam("jobRoleId"), 10, 64)
	if err != nil || jobRoleID < 1 {
		return apperror.Validation("Job role is required.")
	}

	courses, err := h.Repo.ListCourses(c.Request().Context(), jobRoleID)
	if err != nil {
		return err
	}
	if q := strings.ToLower(strings.TrimSpace(c.QueryParam("q"))); q != "" {
		courses = lo.Filter(courses, func(course models.Course, _ int) bool {
			return strings.Contains(strings.ToLower(course.Title), q)
		})
	}
	return respond(c, http.StatusOK, "", envelope{"courses": courses})
}

// SelectCourse records the job role and course chosen by the current user.
// The course must belong to the job role.
func (h *Handlers) SelectCourse(c echo.Context) error {
	var req selectCourseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.JobRoleID == 0 || req.CourseID == 0 {
		return apperror.Validation("Job role and course are required.")
	}

	ctx := c.Request().Context()
	course, err := h.Repo.GetCourse(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Course not found.")
		}
		return err
	}
	if course.JobRoleID != req.JobRoleID {
		return apperror.Validation("Course does not belong to the selected job role.")
	}

	account := auth.GetAccount(ctx)
	if err := h.Repo.SelectCourse(ctx, account.ID, req.JobRoleID, req.CourseID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Course selected successfully.", envelope{
		"jobRoleId": req.JobRoleID,
		"courseId":  req.CourseID,
	})
}
