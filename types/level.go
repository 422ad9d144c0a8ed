// Package types contains the DICOM object model shared by all searchers,
// downloaders and caches: studies, series and instances, the references that
// point at them, and the backend-agnostic Query.
package types

import (
	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
)

// ObjectLevel is the depth of an object in the study->series->instance
// hierarchy. Levels are ordered: LevelStudy is the highest (coarsest) and
// LevelInstance the lowest (deepest).
type ObjectLevel int

const (
	LevelInstance ObjectLevel = iota
	LevelSeries
	LevelStudy
)

func (l ObjectLevel) String() string {
	switch l {
	case LevelStudy:
		return "STUDY"
	case LevelSeries:
		return "SERIES"
	case LevelInstance:
		return "INSTANCE"
	default:
		return "UNKNOWN"
	}
}

// QueryLevel returns the query level that returns objects down to l.
func (l ObjectLevel) QueryLevel() QueryLevel {
	switch l {
	case LevelSeries:
		return QueryLevelSeries
	case LevelInstance:
		return QueryLevelInstance
	default:
		return QueryLevelStudy
	}
}

// QueryLevel represents how deep a query should return results
type QueryLevel string

const (
	QueryLevelStudy    QueryLevel = "STUDY"
	QueryLevelSeries   QueryLevel = "SERIES"
	QueryLevelInstance QueryLevel = "INSTANCE"
)

// Valid reports whether l is one of the known query levels.
func (l QueryLevel) Valid() bool {
	switch l {
	case QueryLevelStudy, QueryLevelSeries, QueryLevelInstance:
		return true
	default:
		return false
	}
}

// ObjectLevelFor returns the object level a query at level l reaches.
func ObjectLevelFor(l QueryLevel) (ObjectLevel, error) {
	switch l {
	case QueryLevelStudy:
		return LevelStudy, nil
	case QueryLevelSeries:
		return LevelSeries, nil
	case QueryLevelInstance:
		return LevelInstance, nil
	default:
		return 0, errors.Wrapf(dterrors.ErrInvalidQuery, "unknown query level %q", string(l))
	}
}
