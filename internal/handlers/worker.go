package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
)

// GetWorkerStatus returns the state of the inspection worker
// (GET /inspector)
func (h *Handler) GetWorkerStatus(c *gin.Context) {
	counts, err := h.inspectionSrv.CountByOutcome(c.Request.Context())
	if err != nil {
		zap.S().Named("inspector_handler").Errorw("failed to count inspections", "error", err)
		c.JSON(http.StatusInternalServerError, v1.Error{Error: "failed to count inspections"})
		return
	}

	c.JSON(http.StatusOK, v1.NewWorkerStatus(h.workerSrv.Status(), counts))
}
