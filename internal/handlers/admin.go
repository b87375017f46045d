// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	// maxPage keeps the row offset far from integer overflow.
	maxPage = 1_000_000
)

type jobRoleRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
}

type courseRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	JobRoleID   int64  `json:"jobRoleId" form:"jobRoleId"`
}

// ListAccounts pages through the verified accounts of a kind, newest first.
func (h *Handlers) ListAccounts(kind models.Kind) echo.HandlerFunc {
	key := kind.String() + "s"
	return func(c echo.Context) error {
		page := min(queryInt(c, "page", 1), maxPage)
		limit := min(queryInt(c, "limit", defaultPageSize), maxPageSize)
		ctx := c.Request().Context()

		accounts, err := h.Repo.ListVerifiedAccounts(ctx, kind, limit, (page-1)*limit)
		if err != nil {
			return err
		}
		total, err := h.Repo.CountVerifiedAccounts(ctx, kind)
		if err != nil {
			return err
		}

		return respond(c, http.StatusOK, "", envelope{
			key:     accounts,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}

// Count returns the number of verified volunteers and users.
func (h *Handlers) Count(c echo.Context) error {
	ctx := c.Request().Context()
	var volunteers, users int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		volunteers, err = h.Repo.CountVerifiedAccounts(gctx, models.KindVolunteer)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = h.Repo.CountVerifiedAccounts(gctx, models.KindUser)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return respond(c, http.StatusOK, "", envelope{"volunteers": volunteers, "users": users})
}

// VolunteerCandidateCount groups users by the volunteer they named.
func (h *Handlers) VolunteerCandidateCount(c echo.Context) error {
	counts, err := h.Repo.CountUsersByVolunteer(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", envelope{"counts": counts})
}

// Volunteer returns a volunteer and the users who named them. Registration
// numbers contain slashes, so clients send the parameter path-escaped.
func (h *Handlers) Volunteer(c echo.Context) error {
	ctx := c.Request().Context()
	volunteer, err := h.volunteerByRegNumber(c)
	if err != nil {
		return err
	}

	docs, err := h.Repo.ListDocuments(ctx, volunteer.ID)
	if err != nil {
		return err
	}
	volunteer.Documents = docs

	users, err := h.Repo.ListUsersByVolunteerName(ctx, volunteer.Name)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", envelope{"volunteer": volunteer, "users": users})
}

// ToggleVolunteerBlock flips the blocked flag of a volunteer.
func (h *Handlers) ToggleVolunteerBlock(c echo.Context) error {
	volunteer, err := h.volunteerByRegNumber(c)
	if err != nil {
		return err
	}

	blocked := !volunteer.IsBlocked
	if err := h.Repo.SetBlocked(c.Request().Context(), volunteer.ID, blocked); err != nil {
		return err
	}
	slog.Info("volunteer_block_toggled", "account_id", volunteer.ID, "blocked", blocked)

	message := "Volunteer unblocked."
	if blocked {
		message = "Volunteer blocked."
	}
	return respond(c, http.StatusOK, message, envelope{"isBlocked": blocked})
}

func (h *Handlers) volunteerByRegNumber(c echo.Context) (*models.Account, error) {
	regNumber, err := url.PathUnescape(c.Param("regNumber"))
	if err != nil || strings.TrimSpace(regNumber) == "" {
		return nil, apperror.Validation("Registration number is required.")
	}

	volunteer, err := h.Repo.GetAccountByRegNumber(c.Request().Context(), models.KindVolunteer, regNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("Volunteer not found.")
		}
		return nil, err
	}
	return volunteer, nil
}

// ListJobRoles returns the job role catalog.
func (h *Handlers) ListJobRoles(c echo.Context) error {
	roles, err := h.Repo.ListJobRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", envelope{"jobRoles": roles})
}

// CreateJobRole adds a job role to the catalog.
func (h *Handlers) CreateJobRole(c echo.Context) error {
	var req jobRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" {
		return apperror.Validation("Title is required.")
	}

	role := &models.JobRole{Title: strings.TrimSpace(req.Title), Description: strings.TrimSpace(req.Description)}
	if err := h.Repo.CreateJobRole(c.Request().Context(), role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("Job role already exists.")
		}
		return err
	}
	return respond(c, http.StatusCreated, "Job role created.", envelope{"jobRole": role})
}

// ListCourses returns the courses, optionally of one job role.
func (h *Handlers) ListCourses(c echo.Context) error {
	jobRoleID, _ := strconv.ParseInt(c.QueryParam("jobRoleId"), 10, 64)
	courses, err := h.Repo.ListCourses(c.Request().Context(), jobRoleID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", envelope{"courses": courses})
}

// CreateCourse adds a course under an existing job role.
func (h *Handlers) CreateCourse(c echo.Context) error {
	var req courseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Title) == "" || req.JobRoleID == 0 {
		return apperror.Validation("Title and job role are required.")
	}

	ctx := c.Request().Context()
	if _, err := h.Repo.GetJobRole(ctx, req.JobRoleID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("Job role not found.")
		}
		return err
	}

	course := &models.Course{
		JobRoleID:   req.JobRoleID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
	}
	if err := h.Repo.CreateCourse(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return apperror.Conflict("Course already exists.")
		}
		return err
	}
	return respond(c, http.StatusCreated, "Course created.", envelope{"course": course})
}
