package caching

import (
	"log/slog"
	"slices"

	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/expiry"
	"github.com/caio-sobreiro/dicomtrolley/tree"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// ObjectCache is a tree of studies, series and instances that expire
// individually. Objects are addressed by their reference:
//
//	cache.Add(study)
//	series, err := cache.Retrieve(seriesRef)
//
// Expired objects are removed lazily, at the start of the next Add or
// Retrieve. An expired object that still has live children keeps its node
// (with the value cleared) until the children are gone too.
//
// ObjectCache is not safe for concurrent use.
type ObjectCache struct {
	root   *tree.Node[types.Object]
	expiry *expiry.Collection[types.Reference] // nil when expiry is disabled
	logger *slog.Logger

	// expired references whose nodes still had children at the last prune
	awaitingPrune []types.Reference
}

// NewObjectCache creates an empty cache
func NewObjectCache(config Config) *ObjectCache {
	config = config.withDefaults()

	c := &ObjectCache{
		root:   tree.New[types.Object](),
		logger: config.Logger,
	}
	if config.Expiry > 0 {
		c.expiry = expiry.New[types.Reference](config.Expiry, config.Clock)
	}
	return c
}

// Add stores obj and every object below it, refreshing their expiry. It
// returns obj.
func (c *ObjectCache) Add(obj types.Object) types.Object {
	c.PruneExpired()
	c.add(obj)
	return obj
}

// AddAll stores every object, pruning only once.
func (c *ObjectCache) AddAll(objects ...types.Object) {
	c.PruneExpired()
	for _, obj := range objects {
		c.add(obj)
	}
}

func (c *ObjectCache) add(obj types.Object) {
	types.Walk(obj, func(o types.Object) {
		ref := o.Reference()
		// the cache tree allows overwrite
		_ = c.root.Set(mustAddress(ref), o)
		if c.expiry != nil {
			c.expiry.Add(ref)
		}
	})
	c.logger.Debug("Added to cache", "object", obj.String())
}

// Retrieve returns the cached object for ref. It fails with ErrNodeNotFound
// if the object was never cached, has expired, or only objects below it are
// cached.
func (c *ObjectCache) Retrieve(ref types.Reference) (types.Object, error) {
	c.PruneExpired()

	address, err := ToAddress(ref)
	if err != nil {
		return nil, err
	}
	node, err := c.root.Get(address)
	if err != nil {
		return nil, errors.Wrapf(dterrors.ErrNodeNotFound, "no node in cache for %s", ref)
	}
	obj, ok := node.Value()
	if !ok {
		return nil, errors.Wrapf(dterrors.ErrNodeNotFound, "node found in cache, but no data for %s", ref)
	}
	return obj, nil
}

// PruneExpired removes every expired object it can. Expired objects with
// live children are cleared instead and retried on the next call.
func (c *ObjectCache) PruneExpired() {
	if c.expiry == nil {
		return
	}
	candidates := slices.Concat(c.awaitingPrune, c.expiry.CollectExpired())
	if len(candidates) == 0 {
		return
	}
	// deepest first so that children go before their parents
	slices.SortStableFunc(candidates, func(a, b types.Reference) int {
		return int(a.Level()) - int(b.Level())
	})

	var pruned, later []types.Reference
	for _, ref := range candidates {
		if c.expiry.Contains(ref) {
			// added again since it expired
			continue
		}
		address := mustAddress(ref)
		err := c.root.PruneLeaf(address)
		switch {
		case err == nil:
			pruned = append(pruned, ref)
		case errors.Is(err, dterrors.ErrNotALeaf):
			if node, getErr := c.root.Get(address); getErr == nil {
				node.Clear()
			}
			later = append(later, ref)
		default:
			// already gone with an ancestor
		}
	}
	c.awaitingPrune = later

	if len(pruned) > 0 || len(later) > 0 {
		c.logger.Debug("Pruned expired objects from cache",
			"pruned", len(pruned),
			"deferred", len(later))
	}
}

// Len returns the number of objects that hold data in the cache.
func (c *ObjectCache) Len() int {
	count := 0
	var walk func(*tree.Node[types.Object])
	walk = func(n *tree.Node[types.Object]) {
		for _, child := range n.Children() {
			if child.State() == tree.StatePopulated {
				count++
			}
			walk(child)
		}
	}
	walk(c.root)
	return count
}

// ToAddress converts a reference to its tree address: study UID, then series
// UID, then instance UID.
func ToAddress(ref types.Reference) (tree.Address, error) {
	switch r := ref.(type) {
	case types.StudyReference:
		return tree.Address{r.StudyUID()}, nil
	case types.SeriesReference:
		return tree.Address{r.StudyUID(), r.SeriesUID()}, nil
	case types.InstanceReference:
		return tree.Address{r.StudyUID(), r.SeriesUID(), r.InstanceUID()}, nil
	default:
		return nil, errors.Wrapf(dterrors.ErrInvalidReference, "cannot convert %v to a cache address", ref)
	}
}

func mustAddress(ref types.Reference) tree.Address {
	address, err := ToAddress(ref)
	if err != nil {
		panic(err)
	}
	return address
}
