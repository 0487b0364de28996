package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/store"
	"github.com/kubev2v/guest-inspection-agent/pkg/filter"
)

const exportSheet = "Inspections"

var exportHeader = []any{
	"Machine ID",
	"Name",
	"Connection",
	"Outcome",
	"Root",
	"OS Type",
	"Distro",
	"Version",
	"Hostname",
	"Product Name",
	"Product Variant",
	"Filesystems Mounted",
	"Icon Size",
	"Applications",
	"Error",
	"Started At",
	"Duration (s)",
}

// InspectionService gives read access to the inspection records.
type InspectionService struct {
	store *store.Store
}

func NewInspectionService(st *store.Store) *InspectionService {
	return &InspectionService{store: st}
}

type InspectionListParams struct {
	Outcomes   []models.InspectionOutcome
	Connection string
	// Filter is an expression of the filter language, e.g. "os.distro = 'rhel'".
	Filter string
	Limit  int
}

func (s *InspectionService) Get(ctx context.Context, machineID string) (*models.InspectionResult, error) {
	return s.store.Inspection().Get(ctx, machineID)
}

// List returns the records matching params, in the order they were produced.
// A malformed filter is returned as a filter.ParseError.
func (s *InspectionService) List(ctx context.Context, params InspectionListParams) ([]models.InspectionResult, error) {
	f := store.NewInspectionQueryFilter().
		ByOutcome(params.Outcomes...).
		ByConnection(params.Connection)

	if strings.TrimSpace(params.Filter) != "" {
		expr, err := filter.Parse([]byte(params.Filter))
		if err != nil {
			return nil, err
		}
		f = f.ByExpression(expr)
	}
	if params.Limit > 0 {
		f = f.Limit(params.Limit)
	}

	return s.store.Inspection().List(ctx, f.OrderBySequence())
}

func (s *InspectionService) CountByOutcome(ctx context.Context) (map[models.InspectionOutcome]int, error) {
	return s.store.Inspection().CountByOutcome(ctx)
}

// Export writes the matching records as an xlsx workbook with one row per machine.
func (s *InspectionService) Export(ctx context.Context, params InspectionListParams, w io.Writer) error {
	results, err := s.List(ctx, params)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, r := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := exportRow(r)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row of %s: %w", r.MachineID, err)
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func exportRow(r models.InspectionResult) []any {
	var osType, distro, version, hostname, product, variant string
	if r.OS != nil {
		osType = r.OS.Type
		distro = r.OS.Distro
		version = fmt.Sprintf("%d.%d", r.OS.MajorVersion, r.OS.MinorVersion)
		hostname = r.OS.Hostname
		product = r.OS.ProductName
		variant = r.OS.ProductVariant
	}

	apps := make([]string, 0, len(r.Applications))
	for _, a := range r.Applications {
		apps = append(apps, a.Name)
	}

	var errMsg string
	if r.Error != nil {
		errMsg = r.Error.Error()
	}

	return []any{
		r.MachineID,
		r.MachineName,
		r.ConnectionURI,
		r.Outcome.Value(),
		r.Root,
		osType,
		distro,
		version,
		hostname,
		product,
		variant,
		r.FilesystemsMounted,
		len(r.Icon),
		strings.Join(apps, ", "),
		errMsg,
		r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		r.Duration().Seconds(),
	}
}
