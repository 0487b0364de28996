package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/pkg/filter"
)

type InspectionFilterFunc func(sq.SelectBuilder) sq.SelectBuilder

type InspectionQueryFilter struct {
	filters []InspectionFilterFunc
}

func NewInspectionQueryFilter() *InspectionQueryFilter {
	return &InspectionQueryFilter{
		filters: make([]InspectionFilterFunc, 0),
	}
}

func (f *InspectionQueryFilter) Add(filter InspectionFilterFunc) *InspectionQueryFilter {
	f.filters = append(f.filters, filter)
	return f
}

func (f *InspectionQueryFilter) ByMachineIDs(ids ...string) *InspectionQueryFilter {
	if len(ids) == 0 {
		return f
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{inspectionColMachineID: ids})
	})
}

func (f *InspectionQueryFilter) ByOutcome(outcomes ...models.InspectionOutcome) *InspectionQueryFilter {
	if len(outcomes) == 0 {
		return f
	}
	values := make([]string, len(outcomes))
	for i, o := range outcomes {
		values[i] = o.Value()
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{inspectionColOutcome: values})
	})
}

func (f *InspectionQueryFilter) ByConnection(uri string) *InspectionQueryFilter {
	if uri == "" {
		return f
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{inspectionColConnectionURI: uri})
	})
}

// ByExpression restricts the records to those matching a parsed filter expression.
func (f *InspectionQueryFilter) ByExpression(expr filter.Expression) *InspectionQueryFilter {
	if expr == nil {
		return f
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Expr(expr.Sql()))
	})
}

func (f *InspectionQueryFilter) Limit(limit int) *InspectionQueryFilter {
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(uint64(limit))
	})
}

func (f *InspectionQueryFilter) OrderBySequence() *InspectionQueryFilter {
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy(inspectionColSequence + " ASC")
	})
}

func (f *InspectionQueryFilter) Apply(builder sq.SelectBuilder) sq.SelectBuilder {
	for _, filter := range f.filters {
		builder = filter(builder)
	}
	return builder
}
