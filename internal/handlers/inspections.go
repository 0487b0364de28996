package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
	"github.com/kubev2v/guest-inspection-agent/pkg/filter"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxListLimit    = 1000
)

var validOutcomes = map[v1.InspectionOutcome]bool{
	v1.InspectionOutcomeInspected: true,
	v1.InspectionOutcomeNoOsFound: true,
	v1.InspectionOutcomeError:     true,
}

// ListInspections returns the inspection records in the order they were produced
// (GET /inspections)
func (h *Handler) ListInspections(c *gin.Context, params v1.ListInspectionsParams) {
	svcParams, err := newListParams(params.Outcome, params.Connection, params.Filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.Error{Error: err.Error()})
		return
	}

	if params.Limit != nil {
		if *params.Limit < 0 {
			c.JSON(http.StatusBadRequest, v1.Error{Error: "limit cannot be negative"})
			return
		}
		svcParams.Limit = min(*params.Limit, maxListLimit)
	}

	results, err := h.inspectionSrv.List(c.Request.Context(), svcParams)
	if err != nil {
		h.listError(c, err)
		return
	}

	c.JSON(http.StatusOK, v1.NewInspectionList(results))
}

// ExportInspections returns the matching records as an xlsx workbook
// (GET /inspections/export)
func (h *Handler) ExportInspections(c *gin.Context, params v1.ExportInspectionsParams) {
	svcParams, err := newListParams(params.Outcome, params.Connection, params.Filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, v1.Error{Error: err.Error()})
		return
	}

	// buffered so a failure can still be reported with a proper status
	var buf bytes.Buffer
	if err := h.inspectionSrv.Export(c.Request.Context(), svcParams, &buf); err != nil {
		h.listError(c, err)
		return
	}

	filename := fmt.Sprintf("inspections-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// GetInspection returns the inspection record of a machine
// (GET /inspections/{id})
func (h *Handler) GetInspection(c *gin.Context, id string) {
	r, ok := h.getInspection(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v1.NewInspectionFromModel(*r))
}

// GetInspectionIcon returns the guest icon as a PNG image
// (GET /inspections/{id}/icon)
func (h *Handler) GetInspectionIcon(c *gin.Context, id string) {
	r, ok := h.getInspection(c, id)
	if !ok {
		return
	}
	if len(r.Icon) == 0 {
		c.JSON(http.StatusNotFound, v1.Error{Error: fmt.Sprintf("machine %s has no icon", id)})
		return
	}
	c.Data(http.StatusOK, "image/png", r.Icon)
}

func (h *Handler) getInspection(c *gin.Context, id string) (*models.InspectionResult, bool) {
	r, err := h.inspectionSrv.Get(c.Request.Context(), id)
	if err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			c.JSON(http.StatusNotFound, v1.Error{Error: err.Error()})
			return nil, false
		}
		zap.S().Named("inspection_handler").Errorw("failed to get inspection", "machine_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to get inspection"})
		return nil, false
	}
	return r, true
}

func (h *Handler) listError(c *gin.Context, err error) {
	var pe filter.ParseError
	if errors.As(err, &pe) {
		c.JSON(http.StatusBadRequest, v1.Error{Error: fmt.Sprintf("invalid filter: %s", pe.Error())})
		return
	}
	zap.S().Named("inspection_handler").Errorw("failed to list inspections", "error", err)
	c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to list inspections"})
}

func newListParams(outcomes *[]v1.InspectionOutcome, connection, expr *string) (services.InspectionListParams, error) {
	var p services.InspectionListParams

	if outcomes != nil {
		for _, o := range *outcomes {
			if !validOutcomes[o] {
				return p, fmt.Errorf("invalid outcome %q", o)
			}
			p.Outcomes = append(p.Outcomes, o.ToModel())
		}
	}
	if connection != nil {
		p.Connection = *connection
	}
	if expr != nil {
		p.Filter = *expr
	}

	return p, nil
}
