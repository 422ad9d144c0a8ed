// Package trolley combines a Searcher and a Downloader. It runs the extra
// queries a downloader needs when it cannot work with the objects it is
// given.
package trolley

import (
	"context"
	"iter"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/caching"
	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/interfaces"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// Config holds trolley configuration
type Config struct {
	Searcher   interfaces.Searcher   // Finds studies (required)
	Downloader interfaces.Downloader // Retrieves datasets (required)
	Cache      *caching.ObjectCache  // If set, searches are served from this cache when possible
	Logger     *slog.Logger          // Logger for the trolley (default: slog.Default())
}

// Trolley searches and downloads DICOM data
type Trolley struct {
	searcher   interfaces.Searcher
	downloader interfaces.Downloader
	logger     *slog.Logger
}

// New creates a trolley
func New(config Config) (*Trolley, error) {
	if config.Searcher == nil {
		return nil, errors.New("trolley: config requires a Searcher")
	}
	if config.Downloader == nil {
		return nil, errors.New("trolley: config requires a Downloader")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	searcher := config.Searcher
	if config.Cache != nil {
		cached, err := caching.NewCachedSearcher(searcher, config.Cache, caching.Config{Logger: config.Logger})
		if err != nil {
			return nil, err
		}
		searcher = cached
	}

	return &Trolley{
		searcher:   searcher,
		downloader: config.Downloader,
		logger:     config.Logger,
	}, nil
}

// FindStudies returns all studies matching query.
func (t *Trolley) FindStudies(ctx context.Context, query types.Query) ([]*types.Study, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return t.searcher.FindStudies(ctx, query)
}

// FindStudy returns the only study matching query. It fails with
// ErrUnexpectedResultCount if there are none or several.
func (t *Trolley) FindStudy(ctx context.Context, query types.Query) (*types.Study, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return interfaces.FindStudy(ctx, t.searcher, query)
}

// FetchAllDatasets returns all datasets contained in objects.
//
// If the downloader needs series or instance level input, the missing
// references are looked up first and the download is retried once.
func (t *Trolley) FetchAllDatasets(ctx context.Context, objects []types.Downloadable) (iter.Seq2[*dicom.Dataset, error], error) {
	datasets, err := t.downloader.Datasets(ctx, objects)

	var level types.ObjectLevel
	switch {
	case err == nil:
		return datasets, nil
	case errors.Is(err, dterrors.ErrNonSeriesParameter):
		level = types.LevelSeries
	case errors.Is(err, dterrors.ErrNonInstanceParameter):
		level = types.LevelInstance
	default:
		return nil, err
	}

	t.logger.Info("Downloader needs finer input, obtaining references",
		"level", level,
		"objects", len(objects))
	refs, err := t.ObtainReferences(ctx, objects, level)
	if err != nil {
		return nil, err
	}
	downloadables := make([]types.Downloadable, len(refs))
	for i, ref := range refs {
		downloadables[i] = ref
	}
	return t.downloader.Datasets(ctx, downloadables)
}

// ObtainReferences returns references at maxLevel or deeper for every
// object. Objects that do not contain such references are looked up with
// FindStudyByID, at most once per study per call.
func (t *Trolley) ObtainReferences(ctx context.Context, objects []types.Downloadable, maxLevel types.ObjectLevel) ([]types.Reference, error) {
	resolved := NewObjectTree()
	searched := make(map[string]bool)

	var refs []types.Reference
	for _, obj := range objects {
		contained, err := obj.ContainedReferences(maxLevel)
		if err == nil {
			refs = append(refs, contained...)
			continue
		}
		if !errors.Is(err, dterrors.ErrNoReferencesFound) {
			return nil, err
		}

		ref := obj.Reference()
		if !searched[ref.StudyUID()] {
			t.logger.Debug("Not enough information in object, asking searcher",
				"object", ref.String(),
				"level", maxLevel)
			study, err := t.searcher.FindStudyByID(ctx, ref.StudyUID(), maxLevel.QueryLevel())
			if err != nil {
				return nil, errors.Wrapf(err, "find study for %s", ref)
			}
			resolved.AddStudy(study)
			searched[ref.StudyUID()] = true
		}

		found, err := resolved.Retrieve(ref)
		if err != nil {
			return nil, err
		}
		contained, err = found.ContainedReferences(maxLevel)
		if err != nil {
			return nil, errors.Wrapf(err, "%s has no %s level objects", ref, maxLevel)
		}
		refs = append(refs, contained...)
	}
	return refs, nil
}
