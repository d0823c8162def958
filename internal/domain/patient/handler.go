package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RouteByID is the full route template of the single-document read.
const RouteByID = "/fhir/patient/:id"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the patient endpoints on a group rooted at /fhir.
// readMW wraps the single-document read only.
func (h *Handler) RegisterRoutes(fhirGroup *echo.Group, readMW ...echo.MiddlewareFunc) {
	fhirGroup.PUT("/patient", h.UpsertPatient)
	fhirGroup.POST("/patient", h.UpsertPatient)
	fhirGroup.GET("/patient", h.SearchPatients)
	fhirGroup.GET("/patient/:id", h.GetPatient, readMW...)
}

// UpsertPatient stores the posted document and answers with its id as
// plain text.
func (h *Handler) UpsertPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return err
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient document")
	}
	id, err := h.svc.Upsert(c.Request().Context(), &p)
	if err != nil {
		if errors.Is(err, ErrInvalidID) || errors.Is(err, ErrInvalidDocument) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store patient").SetInternal(err)
	}
	return c.String(http.StatusOK, id)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id format")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load patient").SetInternal(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) SearchPatients(c echo.Context) error {
	criteria := Criteria{Count: DefaultCount}
	err := echo.QueryParamsBinder(c).
		String("name", &criteria.Name).
		String("birthdateFrom", &criteria.BirthdateFrom).
		String("birthdateUntil", &criteria.BirthdateUntil).
		String("gender", &criteria.Gender).
		String("operator", &criteria.Operator).
		Int("count", &criteria.Count).
		String("lastId", &criteria.LastID).
		String("iterationKey", &criteria.IterationKey).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid search parameters")
	}

	stubs, err := h.svc.Search(c.Request().Context(), criteria)
	switch {
	case errors.Is(err, ErrInvalidGender), errors.Is(err, ErrInvalidOperator),
		errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidCursor):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, stubs)
}

// ParseID validates a patient id and returns it in canonical form.
func ParseID(s string) (string, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
