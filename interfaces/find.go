package interfaces

import (
	"context"

	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// StudyFinder is the part of a Searcher that FindStudy needs
type StudyFinder interface {
	FindStudies(ctx context.Context, query types.Query) ([]*types.Study, error)
}

// FindStudy runs query and returns its only result. It is meant for queries
// on unique identifiers such as StudyInstanceUID or AccessionNumber, and
// fails with ErrUnexpectedResultCount when there is not exactly one study.
func FindStudy(ctx context.Context, finder StudyFinder, query types.Query) (*types.Study, error) {
	studies, err := finder.FindStudies(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(studies) != 1 {
		return nil, errors.Wrapf(dterrors.ErrUnexpectedResultCount,
			"expected exactly one study for %s, but found %d", query.ShortString(), len(studies))
	}
	return studies[0], nil
}
