package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/docker/go-units"
	"go.uber.org/zap"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/store"
)

// Reporter receives the result of every inspection attempt.
type Reporter interface {
	Report(ctx context.Context, result models.InspectionResult) error
}

// LogReporter writes the inspection results to the log.
type LogReporter struct {
	logger *zap.SugaredLogger
}

func NewLogReporter() *LogReporter {
	return &LogReporter{logger: zap.S().Named("inspection_report")}
}

func (r *LogReporter) Report(_ context.Context, result models.InspectionResult) error {
	fields := []any{
		"machine", result.MachineID,
		"name", result.MachineName,
		"uri", result.ConnectionURI,
		"outcome", result.Outcome,
		"duration", result.Duration(),
	}

	switch result.Outcome {
	case models.InspectionOutcomeError:
		r.logger.Warnw("machine inspection failed", append(fields, "error", result.Error)...)
		return nil
	case models.InspectionOutcomeNoOS:
		r.logger.Infow("no operating system found", fields...)
		return nil
	}

	fields = append(fields, "root", result.Root, "mounted", result.FilesystemsMounted)
	if os := result.OS; os != nil {
		fields = append(fields,
			"type", os.Type,
			"distro", os.Distro,
			"version", fmt.Sprintf("%d.%d", os.MajorVersion, os.MinorVersion),
			"hostname", os.Hostname,
			"product_name", os.ProductName,
			"product_variant", os.ProductVariant,
		)
	}
	if result.Icon != nil {
		fields = append(fields, "icon", units.HumanSize(float64(len(result.Icon))))
	}
	fields = append(fields, "applications", len(result.Applications))

	r.logger.Infow("machine inspected", fields...)
	return nil
}

// StoreReporter keeps the results so that they can be queried later.
type StoreReporter struct {
	store *store.Store
}

func NewStoreReporter(st *store.Store) *StoreReporter {
	return &StoreReporter{store: st}
}

func (r *StoreReporter) Report(ctx context.Context, result models.InspectionResult) error {
	// the worker may be stopping; the record must still be written
	return r.store.Inspection().Save(context.WithoutCancel(ctx), result)
}

// MultiReporter hands every result to all of its reporters.
type MultiReporter []Reporter

func NewMultiReporter(reporters ...Reporter) MultiReporter {
	return MultiReporter(reporters)
}

func (m MultiReporter) Report(ctx context.Context, result models.InspectionResult) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
