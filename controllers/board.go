package controllers

import (
	"errors"
	"strconv"
	"time"

	"schedboard/config"
	"schedboard/middleware"
	"schedboard/models"
	"schedboard/schedule"
	"schedboard/services"
	"schedboard/store"
	"schedboard/utils"

	"github.com/gofiber/fiber/v2"
)

type BoardController struct {
	board *services.BoardService
}

func NewBoardController(board *services.BoardService) *BoardController {
	return &BoardController{board: board}
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses.
func respondDomainError(c *fiber.Ctx, err error) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": validationErr.Error(),
			"field": validationErr.Field,
		})
	}
	var conflictErr *models.ConflictError
	if errors.As(err, &conflictErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":             conflictErr.Error(),
			"conflicting_event": conflictErr.Event,
		})
	}
	var persistenceErr *models.PersistenceError
	if errors.As(err, &persistenceErr) {
		// The session cannot guarantee snapshot consistency past this
		// point; the client must reconnect.
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":     persistenceErr.Error(),
			"reconnect": true,
		})
	}
	if errors.Is(err, models.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// GetDraft returns the editable working copy
func (bc *BoardController) GetDraft(c *fiber.Ctx) error {
	st := bc.board.Store()
	return c.JSON(fiber.Map{
		"snapshot": st.DraftCopy(),
		"dirty":    st.Dirty(),
		"title":    st.CurrentTitle(),
	})
}

// GetPublished returns the last released snapshot (public, read-only)
func (bc *BoardController) GetPublished(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"snapshot": bc.board.Store().PublishedCopy(),
	})
}

// GetView returns the rows visible under the requested facet selection
func (bc *BoardController) GetView(c *fiber.Ctx) error {
	var facets store.Facets
	if err := c.BodyParser(&facets); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// The draft is only visible on the authenticated route.
	snap := bc.board.Store().PublishedCopy()
	if c.Query("slot") == "draft" {
		if _, ok := c.Locals("claims").(*middleware.Claims); !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Draft view requires authentication",
			})
		}
		snap = bc.board.Store().DraftCopy()
	}

	rows := store.ApplyFilter(snap, facets, config.AppConfig.ScopeMarkers)
	return c.JSON(fiber.Map{
		"rows":   rows,
		"window": snap.Config.CurrentWindow,
	})
}

// AddEvent appends an event to a row/day cell on the draft
func (bc *BoardController) AddEvent(c *fiber.Ctx) error {
	rowID := c.Params("rowId")
	dayKey := c.Params("dayKey")

	var event models.Event
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	event.Title = utils.SanitizeString(event.Title)

	st := bc.board.Store()
	if event.TimeRange != "" {
		// New events never exclude anything from the check; the store
		// discards any supplied id anyway.
		if res := st.CheckConflict(rowID, dayKey, event.TimeRange, ""); res.HasConflict {
			return respondDomainError(c, &models.ConflictError{
				RowID:     rowID,
				DayKey:    dayKey,
				TimeRange: event.TimeRange,
				Event:     res.ConflictingEvent,
			})
		}
	}

	created, err := st.AddEvent(rowID, dayKey, event)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"event": created,
	})
}

// UpdateEvent replaces the event with matching id in a cell
func (bc *BoardController) UpdateEvent(c *fiber.Ctx) error {
	rowID := c.Params("rowId")
	dayKey := c.Params("dayKey")

	var event models.Event
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if event.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Event id is required",
		})
	}

	st := bc.board.Store()
	if event.TimeRange != "" {
		if res := st.CheckConflict(rowID, dayKey, event.TimeRange, event.ID); res.HasConflict {
			return respondDomainError(c, &models.ConflictError{
				RowID:     rowID,
				DayKey:    dayKey,
				TimeRange: event.TimeRange,
				Event:     res.ConflictingEvent,
			})
		}
	}

	if err := st.UpdateEvent(rowID, dayKey, event); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"event": event,
	})
}

type MoveEventRequest struct {
	FromRow string `json:"fromRow"`
	FromDay string `json:"fromDay"`
	ToRow   string `json:"toRow"`
	ToDay   string `json:"toDay"`
}

// MoveEvent relocates an event across row/day cells on the draft
func (bc *BoardController) MoveEvent(c *fiber.Ctx) error {
	eventID := c.Params("eventId")

	var req MoveEventRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	bc.board.Store().MoveEvent(eventID, req.FromRow, req.FromDay, req.ToRow, req.ToDay)
	return c.JSON(fiber.Map{
		"message": "Event moved",
	})
}

// CopyEvent duplicates an event into its own cell with a fresh id
func (bc *BoardController) CopyEvent(c *fiber.Ctx) error {
	eventID := c.Params("eventId")

	var req struct {
		RowID  string `json:"rowId"`
		DayKey string `json:"dayKey"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	copied, ok := bc.board.Store().CopyEventInSameCell(eventID, req.RowID, req.DayKey)
	if !ok {
		return respondDomainError(c, models.ErrNotFound)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"event": copied,
	})
}

// DeleteEvent removes an event from a cell on the draft
func (bc *BoardController) DeleteEvent(c *fiber.Ctx) error {
	bc.board.Store().DeleteEvent(c.Params("rowId"), c.Params("dayKey"), c.Params("eventId"))
	return c.JSON(fiber.Map{
		"message": "Event deleted",
	})
}

type ConflictCheckRequest struct {
	RowID     string `json:"rowId"`
	DayKey    string `json:"dayKey"`
	TimeRange string `json:"time"`
	ExcludeID string `json:"excludeId"`
}

// CheckConflict runs the advisory conflict check used while a time field is
// being edited
func (bc *BoardController) CheckConflict(c *fiber.Ctx) error {
	var req ConflictCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	res := bc.board.Store().CheckConflict(req.RowID, req.DayKey, req.TimeRange, req.ExcludeID)
	return c.JSON(res)
}

// AddInstructor creates an instructor and its paired row
func (bc *BoardController) AddInstructor(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Regional string `json:"regional"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ins, err := bc.board.Store().AddInstructor(utils.SanitizeString(req.Name), models.NormalizeRegional(req.Regional))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"instructor": ins,
	})
}

// UpdateInstructor updates an instructor and mirrors it onto the paired row
func (bc *BoardController) UpdateInstructor(c *fiber.Ctx) error {
	var ins models.Instructor
	if err := c.BodyParser(&ins); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	ins.ID = c.Params("id")
	ins.Regional = models.NormalizeRegional(ins.Regional)

	if err := bc.board.Store().UpdateInstructor(ins); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"instructor": ins,
	})
}

// DeleteInstructor removes an instructor and its paired row together
func (bc *BoardController) DeleteInstructor(c *fiber.Ctx) error {
	bc.board.Store().DeleteInstructor(c.Params("id"))
	return c.JSON(fiber.Map{
		"message": "Instructor deleted",
	})
}

// UpdateTitle sets the display title for the current window
func (bc *BoardController) UpdateTitle(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	bc.board.Store().UpdateTitle(utils.SanitizeString(req.Title))
	return c.JSON(fiber.Map{
		"title": bc.board.Store().CurrentTitle(),
	})
}

// UpdateWindow replaces the current window
func (bc *BoardController) UpdateWindow(c *fiber.Ctx) error {
	var w models.Window
	if err := c.BodyParser(&w); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := bc.board.Store().UpdateWindow(w); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"window": w,
	})
}

// NavigateWeek moves the current window one week forward or back
func (bc *BoardController) NavigateWeek(c *fiber.Ctx) error {
	return bc.navigate(c, bc.board.Store().NavigateWeek)
}

// NavigateMonth moves the current window one month forward or back
func (bc *BoardController) NavigateMonth(c *fiber.Ctx) error {
	return bc.navigate(c, bc.board.Store().NavigateMonth)
}

func (bc *BoardController) navigate(c *fiber.Ctx, fn func(string) (models.Window, error)) error {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	window, err := fn(req.Direction)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"window": window,
		"title":  bc.board.Store().CurrentTitle(),
	})
}

// GetMonthGrid returns the 42-cell month grid for the calendar picker
func (bc *BoardController) GetMonthGrid(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid year",
		})
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid month",
		})
	}

	return c.JSON(fiber.Map{
		"cells": schedule.MonthGrid(year, time.Month(month)),
	})
}

// SaveDraft persists the working copy
func (bc *BoardController) SaveDraft(c *fiber.Ctx) error {
	if err := bc.board.SaveDraft(c.Context()); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Draft saved",
	})
}

// Publish copies the draft into the published slot
func (bc *BoardController) Publish(c *fiber.Ctx) error {
	if err := bc.board.Publish(c.Context()); err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Published",
		"dirty":   bc.board.Store().Dirty(),
	})
}

// MigrateDayKeys rewrites legacy day keys of the draft to ISO keys
func (bc *BoardController) MigrateDayKeys(c *fiber.Ctx) error {
	migrated := bc.board.Store().MigrateLegacyDayKeys()
	return c.JSON(fiber.Map{
		"rows_migrated": migrated,
	})
}
