package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"scan2cal/calendar-app/internal/domain"
	"scan2cal/calendar-app/internal/service"
)

// CalendarHandler serves calendar CRUD, extraction previews and ICS exchange.
type CalendarHandler struct {
	calendars  service.CalendarService
	extraction service.ExtractionService
}

func NewCalendarHandler(calendars service.CalendarService, extraction service.ExtractionService) *CalendarHandler {
	return &CalendarHandler{calendars: calendars, extraction: extraction}
}

// --- Request Structs ---

type CreateCalendarRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type SaveCalendarRequest struct {
	Name            string         `json:"name" binding:"required"`
	Events          []domain.Event `json:"events"`
	ExpectedVersion *int64         `json:"expectedVersion"`
}

type ExtractRequest struct {
	CleanKey string `json:"cleanKey" binding:"required"`
}

type ImportCalendarRequest struct {
	Name string `json:"name"`
	ICS  string `json:"ics" binding:"required"`
}

// --- Handler Methods ---

// CreateCalendar godoc
// @Summary Create an empty calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param request body CreateCalendarRequest true "Name and description"
// @Success 201 {object} domain.Calendar
// @Failure 400 {object} gin.H
// @Security BearerAuth
// @Router /calendars [post]
func (h *CalendarHandler) CreateCalendar(c *gin.Context) {
	var req CreateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cal, err := h.calendars.Create(c.Request.Context(), principal(c), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}

// ListCalendars godoc
// @Summary List the caller's calendars
// @Tags Calendars
// @Produce json
// @Security BearerAuth
// @Success 200 {object} gin.H "{calendars: [...]} with event counts"
// @Failure 401 {object} gin.H
// @Router /calendars [get]
func (h *CalendarHandler) ListCalendars(c *gin.Context) {
	summaries, err := h.calendars.List(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calendars": summaries})
}

// GetCalendar godoc
// @Summary Get a calendar with its events
// @Tags Calendars
// @Produce json
// @Security BearerAuth
// @Param calendarId path string true "Calendar ID"
// @Success 200 {object} domain.Calendar
// @Failure 404 {object} gin.H "Calendar not found or not owned"
// @Router /calendars/{calendarId} [get]
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	cal, err := h.calendars.Get(c.Request.Context(), principal(c), c.Param("calendarId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// SaveCalendar godoc
// @Summary Replace name and events of a calendar, creating it when the id is new
// @Tags Calendars
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param request body SaveCalendarRequest true "Name, full event array and optional expected version"
// @Success 200 {object} domain.Calendar
// @Failure 400 {object} gin.H "Malformed event or missing name"
// @Failure 404 {object} gin.H "Calendar belongs to someone else"
// @Failure 409 {object} gin.H "Expected version is stale"
// @Security BearerAuth
// @Router /calendars/{calendarId} [put]
func (h *CalendarHandler) SaveCalendar(c *gin.Context) {
	var req SaveCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cal, err := h.calendars.Save(c.Request.Context(), principal(c), service.SaveRequest{
		ID:              c.Param("calendarId"),
		Name:            req.Name,
		Events:          req.Events,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// DeleteCalendar godoc
// @Summary Delete a calendar
// @Tags Calendars
// @Produce json
// @Security BearerAuth
// @Param calendarId path string true "Calendar ID"
// @Success 200 {object} gin.H "{deleted: {id, name}}"
// @Failure 404 {object} gin.H "Calendar not found or not owned"
// @Router /calendars/{calendarId} [delete]
func (h *CalendarHandler) DeleteCalendar(c *gin.Context) {
	deleted, err := h.calendars.Delete(c.Request.Context(), principal(c), c.Param("calendarId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Extract godoc
// @Summary Preview the events a language model finds in a cleaned text
// @Tags Calendars
// @Accept json
// @Produce json
// @Param calendarId path string true "Calendar ID"
// @Param request body ExtractRequest true "Cleaned text key"
// @Success 200 {object} service.ExtractionResult
// @Failure 404 {object} gin.H "Calendar or text not found"
// @Failure 502 {object} gin.H "Model returned invalid output"
// @Security BearerAuth
// @Router /calendars/{calendarId}/extract [post]
func (h *CalendarHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.extraction.Preview(c.Request.Context(), principal(c), c.Param("calendarId"), req.CleanKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportICS godoc
// @Summary Download a calendar as iCalendar
// @Tags Calendars
// @Produce text/calendar
// @Security BearerAuth
// @Param calendarId path string true "Calendar ID"
// @Success 200 {file} file "VCALENDAR attachment"
// @Failure 404 {object} gin.H "Calendar not found or not owned"
// @Router /calendars/{calendarId}/ics [get]
func (h *CalendarHandler) ExportICS(c *gin.Context) {
	filename, data, err := h.calendars.ExportICS(c.Request.Context(), principal(c), c.Param("calendarId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", data)
}

// ImportICS godoc
// @Summary Create a calendar from iCalendar text
// @Tags Calendars
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ImportCalendarRequest true "Calendar name and ICS text"
// @Success 201 {object} domain.Calendar
// @Failure 400 {object} gin.H "Empty, unparsable or eventless ICS"
// @Router /calendars/import [post]
func (h *CalendarHandler) ImportICS(c *gin.Context) {
	var req ImportCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cal, err := h.calendars.ImportICS(c.Request.Context(), principal(c), req.Name, []byte(req.ICS))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}
