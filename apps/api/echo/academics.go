package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hisakoh/campushub/core"
	"github.com/hisakoh/campushub/core/academics"
)

type academicsApi struct {
	svc *academics.Service
}

func registerAcademicsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *academics.Service) {
	api := academicsApi{svc: svc}

	ag := g.Group("/academics", jwt)
	ag.GET("/terms", api.queryTerms)
	ag.PUT("/terms/:number", api.setTermDates, adminMiddleware())
	ag.GET("/terms/current", api.currentTerm)
	ag.GET("/slots", api.querySlots)

	lg := g.Group("/lectures", jwt)
	lg.POST("", api.createLecture)
	lg.GET("", api.queryLectures)
	lg.GET("/:id", api.retrieveLecture)
	lg.PUT("/:id", api.updateLecture)
	lg.DELETE("/:id", api.destroyLecture)

	rg := g.Group("/registrations", jwt)
	rg.POST("", api.register)
	rg.GET("", api.queryRegistrations)
	rg.GET("/:id", api.retrieveRegistration)
	rg.DELETE("/:id", api.unregister)
	rg.POST("/:id/attendance", api.incrementAttendance)
	rg.DELETE("/:id/attendance", api.decrementAttendance)
}

// Handlers

func (api *academicsApi) queryTerms(ctx echo.Context) error {
	terms, err := api.svc.Terms(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying terms")
	}
	return ctx.JSON(http.StatusOK, terms)
}

func (api *academicsApi) setTermDates(ctx echo.Context) error {
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil {
		return errHttpNotFound
	}

	var data TermDatesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TermDatesRequest")
	}
	term, err := api.svc.SetTermDates(ctx.Request().Context(), number, data.StartDate, data.EndDate)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, term)
}

func (api *academicsApi) currentTerm(ctx echo.Context) error {
	term, year, err := api.svc.CurrentTerm(ctx.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, CurrentTermResponse{Term: term, Year: year})
}

func (api *academicsApi) querySlots(ctx echo.Context) error {
	slots, err := api.svc.Slots(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying slots")
	}
	return ctx.JSON(http.StatusOK, slots)
}

func (api *academicsApi) createLecture(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data academics.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLecture")
	}
	lec, err := api.svc.CreateLecture(ctx.Request().Context(), claims.UserID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, lec)
}

func (api *academicsApi) queryLectures(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	lecs, err := api.svc.QueryLectures(ctx.Request().Context(), claims.UserID)
	if err != nil {
		return errors.Wrap(err, "querying lectures")
	}
	if lecs == nil {
		lecs = []academics.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lecs)
}

func (api *academicsApi) retrieveLecture(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	lec, err := api.svc.GetLecture(ctx.Request().Context(), ctx.Param("id"), claims.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *academicsApi) updateLecture(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data academics.UpdateLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLecture")
	}
	lec, err := api.svc.UpdateLecture(ctx.Request().Context(), ctx.Param("id"), claims.UserID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *academicsApi) destroyLecture(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	if err := api.svc.DeleteLecture(ctx.Request().Context(), ctx.Param("id"), claims.UserID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) register(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data academics.NewRegistration
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRegistration")
	}
	reg, err := api.svc.Register(ctx.Request().Context(), claims.UserID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, reg)
}

func (api *academicsApi) queryRegistrations(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	year, err := strconv.Atoi(ctx.QueryParam("year"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "year", Error: "a valid year is required"})
	}

	regs, err := api.svc.Registrations(ctx.Request().Context(), claims.UserID, year)
	if err != nil {
		return errors.Wrap(err, "querying registrations")
	}
	if regs == nil {
		regs = []academics.Registration{}
	}
	return ctx.JSON(http.StatusOK, regs)
}

func (api *academicsApi) retrieveRegistration(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	reg, err := api.svc.GetRegistration(ctx.Request().Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reg)
}

func (api *academicsApi) unregister(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	if err := api.svc.Unregister(ctx.Request().Context(), id, claims.UserID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *academicsApi) incrementAttendance(ctx echo.Context) error {
	return api.mutateAttendance(ctx, api.svc.IncrementAttendance)
}

func (api *academicsApi) decrementAttendance(ctx echo.Context) error {
	return api.mutateAttendance(ctx, api.svc.DecrementAttendance)
}

func (api *academicsApi) mutateAttendance(ctx echo.Context, mutate func(c context.Context, id, userID int) (int, error)) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	count, err := mutate(ctx.Request().Context(), id, claims.UserID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, AttendanceResponse{AttendanceCount: count})
}

type (
	TermDatesRequest struct {
		StartDate null.Time `json:"start_date"`
		EndDate   null.Time `json:"end_date"`
	}

	CurrentTermResponse struct {
		Term academics.Term `json:"term"`
		Year int            `json:"year"`
	}

	AttendanceResponse struct {
		AttendanceCount int `json:"attendance_count"`
	}
)
