package caching

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/interfaces"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// CachedSearcher serves searches from cache and calls the wrapped searcher
// only when needed.
//
// FindStudies responses are cached per query. A response is returned only
// for an identical query and only while every study in it is cached.
//
// FindStudyByID is served from the object cache when the cached study holds
// objects down to the requested level. Otherwise the study is searched again
// and replaces the cached one.
type CachedSearcher struct {
	searcher interfaces.Searcher
	cache    *ObjectCache
	queries  *QueryCache
	logger   *slog.Logger
}

var _ interfaces.Searcher = (*CachedSearcher)(nil)

// NewCachedSearcher wraps searcher. The object cache may be shared between
// searchers.
func NewCachedSearcher(searcher interfaces.Searcher, cache *ObjectCache, config Config) (*CachedSearcher, error) {
	config = config.withDefaults()

	queries, err := NewQueryCache(cache, config)
	if err != nil {
		return nil, err
	}
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
		queries:  queries,
		logger:   config.Logger,
	}, nil
}

// FindStudies returns the cached response for query, or searches and caches
// the response.
func (s *CachedSearcher) FindStudies(ctx context.Context, query types.Query) ([]*types.Study, error) {
	studies, err := s.queries.GetResponse(query)
	if err == nil {
		return studies, nil
	}
	if !errors.Is(err, dterrors.ErrNodeNotFound) {
		return nil, err
	}

	s.logger.Debug("No cache for query, searching",
		"query", query.ShortString(),
		"reason", err.Error())
	studies, err = s.searcher.FindStudies(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := s.queries.AddResponse(query, studies); err != nil {
		return nil, err
	}
	return studies, nil
}

// FindStudyByID returns the cached study if it is deep enough for level,
// otherwise searches and caches it.
func (s *CachedSearcher) FindStudyByID(ctx context.Context, studyUID string, level types.QueryLevel) (*types.Study, error) {
	study, err := s.fromCache(studyUID, level)
	if err == nil {
		return study, nil
	}
	if !errors.Is(err, dterrors.ErrNodeNotFound) {
		return nil, err
	}

	s.logger.Debug("Study not usable from cache, searching",
		"studyUID", studyUID,
		"level", level,
		"reason", err.Error())
	study, err = s.searcher.FindStudyByID(ctx, studyUID, level)
	if err != nil {
		return nil, err
	}
	s.cache.Add(study)
	return study, nil
}

func (s *CachedSearcher) fromCache(studyUID string, level types.QueryLevel) (*types.Study, error) {
	required, err := types.ObjectLevelFor(level)
	if err != nil {
		return nil, err
	}
	ref, err := types.NewStudyReference(studyUID)
	if err != nil {
		return nil, err
	}
	obj, err := s.cache.Retrieve(ref)
	if err != nil {
		return nil, err
	}
	study, ok := obj.(*types.Study)
	if !ok {
		return nil, errors.Wrapf(dterrors.ErrNodeNotFound, "cached %s is not a study", obj)
	}
	if study.MaxObjectDepth() > required {
		return nil, errors.Wrapf(dterrors.ErrNodeNotFound,
			"%s found in cache, but it does not contain objects down to %s level", study, level)
	}
	return study, nil
}

func (s *CachedSearcher) String() string {
	return "CachedSearcher"
}
