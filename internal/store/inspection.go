package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	srvErrors "github.com/kubev2v/guest-inspection-agent/pkg/errors"
)

// Column name constants for inspection_results table
const (
	inspectionTable             = "inspection_results"
	inspectionColMachineID      = "machine_id"
	inspectionColAttemptID      = "attempt_id"
	inspectionColMachineName    = "machine_name"
	inspectionColConnectionURI  = "connection_uri"
	inspectionColOutcome        = "outcome"
	inspectionColRoot           = "root"
	inspectionColOSType         = "os_type"
	inspectionColDistro         = "distro"
	inspectionColMajorVersion   = "major_version"
	inspectionColMinorVersion   = "minor_version"
	inspectionColHostname       = "hostname"
	inspectionColProductName    = "product_name"
	inspectionColProductVariant = "product_variant"
	inspectionColMounted        = "filesystems_mounted"
	inspectionColIcon           = "icon"
	inspectionColApplications   = "applications"
	inspectionColError          = "error"
	inspectionColStartedAt      = "started_at"
	inspectionColFinishedAt     = "finished_at"
	inspectionColSequence       = "sequence"
)

var inspectionColumns = []string{
	inspectionColMachineID,
	inspectionColAttemptID,
	inspectionColMachineName,
	inspectionColConnectionURI,
	inspectionColOutcome,
	inspectionColRoot,
	inspectionColOSType,
	inspectionColDistro,
	inspectionColMajorVersion,
	inspectionColMinorVersion,
	inspectionColHostname,
	inspectionColProductName,
	inspectionColProductVariant,
	inspectionColMounted,
	inspectionColIcon,
	inspectionColApplications,
	inspectionColError,
	inspectionColStartedAt,
	inspectionColFinishedAt,
}

// InspectionStore keeps the inspection records for the lifetime of the process.
type InspectionStore struct {
	db QueryInterceptor
}

func NewInspectionStore(db QueryInterceptor) *InspectionStore {
	return &InspectionStore{db: db}
}

// Save inserts the record of an inspection attempt. A machine keeps its first record.
func (s *InspectionStore) Save(ctx context.Context, r models.InspectionResult) error {
	var (
		osType, distro, hostname, productName, productVariant any
		major, minor                                          any
		icon, apps, errStr, root                              any
	)

	if r.OS != nil {
		osType = r.OS.Type
		distro = r.OS.Distro
		hostname = r.OS.Hostname
		productName = r.OS.ProductName
		productVariant = r.OS.ProductVariant
		major = r.OS.MajorVersion
		minor = r.OS.MinorVersion
	}
	if r.Root != "" {
		root = r.Root
	}
	if len(r.Icon) > 0 {
		icon = r.Icon
	}
	if r.Applications != nil {
		data, err := json.Marshal(r.Applications)
		if err != nil {
			return fmt.Errorf("marshaling applications of %s: %w", r.MachineID, err)
		}
		apps = string(data)
	}
	if r.Error != nil {
		errStr = r.Error.Error()
	}

	query, args, err := sq.Insert(inspectionTable).
		Columns(inspectionColumns...).
		Values(
			r.MachineID,
			r.AttemptID,
			r.MachineName,
			r.ConnectionURI,
			r.Outcome.Value(),
			root,
			osType,
			distro,
			major,
			minor,
			hostname,
			productName,
			productVariant,
			r.FilesystemsMounted,
			icon,
			apps,
			errStr,
			r.StartedAt,
			r.FinishedAt,
		).
		Suffix("ON CONFLICT (" + inspectionColMachineID + ") DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("saving inspection of %s: %w", r.MachineID, err)
	}
	return nil
}

// Get returns the inspection record of a machine.
func (s *InspectionStore) Get(ctx context.Context, machineID string) (*models.InspectionResult, error) {
	query, args, err := sq.Select(inspectionColumns...).
		From(inspectionTable).
		Where(sq.Eq{inspectionColMachineID: machineID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query for machine %s: %w", machineID, err)
	}

	r, err := scanInspection(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewInspectionNotFoundError(machineID)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning inspection of %s: %w", machineID, err)
	}
	return r, nil
}

// List returns the records matching the filter. If filter is nil, returns all in insertion order.
func (s *InspectionStore) List(ctx context.Context, filter *InspectionQueryFilter) ([]models.InspectionResult, error) {
	builder := sq.Select(inspectionColumns...).From(inspectionTable)
	if filter == nil {
		filter = NewInspectionQueryFilter().OrderBySequence()
	}
	builder = filter.Apply(builder)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing list query: %w", err)
	}
	defer rows.Close()

	results := make([]models.InspectionResult, 0)
	for rows.Next() {
		r, err := scanInspection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning inspection row: %w", err)
		}
		results = append(results, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inspection rows: %w", err)
	}
	return results, nil
}

// CountByOutcome returns the number of records per outcome.
func (s *InspectionStore) CountByOutcome(ctx context.Context) (map[models.InspectionOutcome]int, error) {
	query, args, err := sq.Select(inspectionColOutcome, "COUNT(*)").
		From(inspectionTable).
		GroupBy(inspectionColOutcome).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing count query: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.InspectionOutcome]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		counts[models.InspectionOutcome(outcome)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating count rows: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInspection(row rowScanner) (*models.InspectionResult, error) {
	var (
		r                                                     models.InspectionResult
		outcome                                               string
		machineName, connURI, root                            sql.NullString
		osType, distro, hostname, productName, productVariant sql.NullString
		major, minor                                          sql.NullInt64
		icon                                                  []byte
		apps, errStr                                          sql.NullString
	)

	err := row.Scan(
		&r.MachineID,
		&r.AttemptID,
		&machineName,
		&connURI,
		&outcome,
		&root,
		&osType,
		&distro,
		&major,
		&minor,
		&hostname,
		&productName,
		&productVariant,
		&r.FilesystemsMounted,
		&icon,
		&apps,
		&errStr,
		&r.StartedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Outcome = models.InspectionOutcome(outcome)
	r.MachineName = machineName.String
	r.ConnectionURI = connURI.String
	r.Root = root.String

	if osType.Valid {
		r.OS = &models.OSInfo{
			Type:           osType.String,
			Distro:         distro.String,
			MajorVersion:   int(major.Int64),
			MinorVersion:   int(minor.Int64),
			Hostname:       hostname.String,
			ProductName:    productName.String,
			ProductVariant: productVariant.String,
		}
	}
	if len(icon) > 0 {
		r.Icon = icon
	}
	if apps.Valid {
		if err := json.Unmarshal([]byte(apps.String), &r.Applications); err != nil {
			return nil, fmt.Errorf("unmarshaling applications: %w", err)
		}
	}
	if errStr.Valid {
		r.Error = errors.New(errStr.String)
	}

	return &r, nil
}
