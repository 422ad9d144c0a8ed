package caching

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// QueryCache remembers which studies a query returned.
//
// Only references are kept per query; the studies themselves live in the
// ObjectCache. A cached response is served only while every study it refers
// to is still in the ObjectCache. The number of remembered queries is
// bounded, least recently used queries are dropped first.
type QueryCache struct {
	cache   *ObjectCache
	queries *lru.Cache[string, []types.Reference]
	logger  *slog.Logger
}

// NewQueryCache creates a query cache on top of cache
func NewQueryCache(cache *ObjectCache, config Config) (*QueryCache, error) {
	config = config.withDefaults()

	queries, err := lru.New[string, []types.Reference](config.MaxQueries)
	if err != nil {
		return nil, errors.Wrap(err, "create query cache")
	}
	return &QueryCache{
		cache:   cache,
		queries: queries,
		logger:  config.Logger,
	}, nil
}

// AddResponse caches the studies and remembers them as the response to query.
func (q *QueryCache) AddResponse(query types.Query, response []*types.Study) error {
	signature, err := query.Signature()
	if err != nil {
		return err
	}

	objects := make([]types.Object, len(response))
	refs := make([]types.Reference, len(response))
	for i, study := range response {
		objects[i] = study
		refs[i] = study.Reference()
	}
	q.cache.AddAll(objects...)
	q.queries.Add(signature, refs)
	return nil
}

// GetResponse returns the cached response to query. It fails with
// ErrNodeNotFound if the query is unknown or if any study of the response is
// no longer cached. In the latter case the query is forgotten.
func (q *QueryCache) GetResponse(query types.Query) ([]*types.Study, error) {
	signature, err := query.Signature()
	if err != nil {
		return nil, err
	}
	refs, ok := q.queries.Get(signature)
	if !ok {
		return nil, errors.Wrapf(dterrors.ErrNodeNotFound, "%s not found in cache", query.ShortString())
	}

	studies := make([]*types.Study, 0, len(refs))
	for _, ref := range refs {
		obj, err := q.cache.Retrieve(ref)
		if err == nil {
			if study, isStudy := obj.(*types.Study); isStudy {
				studies = append(studies, study)
				continue
			}
			err = errors.Wrapf(dterrors.ErrNodeNotFound, "cached %s is not a study", obj)
		}
		q.queries.Remove(signature)
		return nil, errors.Wrapf(err, "one or more responses to %s not in cache", query.ShortString())
	}

	q.logger.Debug("Found all objects in cache",
		"count", len(studies),
		"query", query.ShortString())
	return studies, nil
}

// Len returns the number of remembered queries.
func (q *QueryCache) Len() int {
	return q.queries.Len()
}
