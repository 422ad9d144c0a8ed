// Package interfaces contains the capability interfaces that protocol
// backends implement and the core consumes.
package interfaces

import (
	"context"

	"github.com/caio-sobreiro/dicomtrolley/types"
)

// Searcher finds studies on a PACS or VNA
type Searcher interface {
	// FindStudies returns all studies matching the query, populated down to
	// query.QueryLevel.
	FindStudies(ctx context.Context, query types.Query) ([]*types.Study, error)

	// FindStudyByID returns the single study with this UID, populated down to
	// level. It fails with ErrUnexpectedResultCount when zero or more than one
	// study matches.
	FindStudyByID(ctx context.Context, studyUID string, level types.QueryLevel) (*types.Study, error)
}
