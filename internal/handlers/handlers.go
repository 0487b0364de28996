package handlers

import (
	"context"
	"io"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
)

type WorkerService interface {
	Status() models.WorkerStatus
}

type InspectionService interface {
	Get(ctx context.Context, machineID string) (*models.InspectionResult, error)
	List(ctx context.Context, params services.InspectionListParams) ([]models.InspectionResult, error)
	CountByOutcome(ctx context.Context) (map[models.InspectionOutcome]int, error)
	Export(ctx context.Context, params services.InspectionListParams, w io.Writer) error
}

type Handler struct {
	workerSrv     WorkerService
	inspectionSrv InspectionService
}

var _ v1.ServerInterface = &Handler{}

func New(workerSrv WorkerService, inspectionSrv InspectionService) *Handler {
	return &Handler{
		workerSrv:     workerSrv,
		inspectionSrv: inspectionSrv,
	}
}
