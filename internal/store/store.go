package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db         *sql.DB
	inspection *InspectionStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		inspection: NewInspectionStore(newQueryInterceptor(db)),
	}
}

func (s *Store) Inspection() *InspectionStore {
	return s.inspection
}

func (s *Store) Close() error {
	return s.db.Close()
}
