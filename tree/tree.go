// Package tree provides an order-preserving tree keyed by string path
// segments, with an optional value on every node.
//
// Creating nodes is always explicit. GetOrCreate and Set materialize missing
// nodes, while Get and Exists never touch the structure. This keeps existence
// checks free of side effects.
package tree

import (
	"iter"
	"slices"
	"sort"
	"strings"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/pkg/errors"
)

// Address is a sequence of keys leading from a node to one of its
// descendants. The empty address points at the node itself.
type Address []string

// ParseAddress splits a dot-separated address. Use a plain Address literal
// when keys themselves contain dots.
func ParseAddress(dotted string) Address {
	if dotted == "" {
		return Address{}
	}
	return Address(strings.Split(dotted, "."))
}

func (a Address) String() string {
	return strings.Join(a, ".")
}

// State describes what a node holds.
type State int

const (
	// StateEmpty nodes never held a value.
	StateEmpty State = iota
	// StatePopulated nodes hold a value.
	StatePopulated
	// StateCleared nodes held a value that has since been cleared.
	StateCleared
	// StateRemoved nodes have been detached from their tree.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	case StateCleared:
		return "cleared"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// PruneStrategy decides what PruneMany does with addresses that cannot be
// pruned. Consider pruning B and E from this tree:
//
//	    A
//	   / \
//	  B   C
//	 / \
//	D   E
//
// FORCE removes B with all its children. WHERE_POSSIBLE skips B because it is
// not a leaf, but still removes E. CHECK_FIRST refuses the whole batch
// because B would orphan D.
type PruneStrategy int

const (
	PruneForce PruneStrategy = iota
	PruneWherePossible
	PruneCheckFirst
)

func (s PruneStrategy) String() string {
	switch s {
	case PruneForce:
		return "FORCE"
	case PruneWherePossible:
		return "WHERE_POSSIBLE"
	case PruneCheckFirst:
		return "CHECK_FIRST"
	default:
		return "UNKNOWN"
	}
}

// Option configures a new Node.
type Option func(*options)

type options struct {
	allowOverwrite bool
}

// ForbidOverwrite makes SetValue fail on nodes that already hold a value.
// The policy is inherited by every descendant created later.
func ForbidOverwrite() Option {
	return func(o *options) {
		o.allowOverwrite = false
	}
}

// Node is a tree node holding an optional value and an ordered set of
// children. A Node exclusively owns its children.
type Node[V any] struct {
	value          V
	state          State
	allowOverwrite bool
	keys           []string
	children       map[string]*Node[V]
}

// New returns an empty root node. Overwriting values is allowed unless
// ForbidOverwrite is given.
func New[V any](opts ...Option) *Node[V] {
	o := options{allowOverwrite: true}
	for _, opt := range opts {
		opt(&o)
	}
	return newNode[V](o.allowOverwrite)
}

func newNode[V any](allowOverwrite bool) *Node[V] {
	return &Node[V]{
		allowOverwrite: allowOverwrite,
		children:       make(map[string]*Node[V]),
	}
}

// AllowsOverwrite reports whether SetValue may replace an existing value.
func (n *Node[V]) AllowsOverwrite() bool {
	return n.allowOverwrite
}

// State returns what this node currently holds.
func (n *Node[V]) State() State {
	return n.state
}

// Value returns the node value. ok is false unless the node is populated.
func (n *Node[V]) Value() (value V, ok bool) {
	if n.state != StatePopulated {
		return value, false
	}
	return n.value, true
}

// SetValue stores value on this node.
func (n *Node[V]) SetValue(value V) error {
	if !n.allowOverwrite && n.state == StatePopulated {
		return errors.WithStack(dterrors.ErrOverwriteNotAllowed)
	}
	n.value = value
	n.state = StatePopulated
	return nil
}

// Clear drops the value but keeps the node and its children in place.
func (n *Node[V]) Clear() {
	var zero V
	n.value = zero
	if n.state == StatePopulated {
		n.state = StateCleared
	}
}

// IsLeaf reports whether the node has no children.
func (n *Node[V]) IsLeaf() bool {
	return len(n.keys) == 0
}

// Len returns the number of direct children.
func (n *Node[V]) Len() int {
	return len(n.keys)
}

// Keys returns the child keys in insertion order.
func (n *Node[V]) Keys() []string {
	return slices.Clone(n.keys)
}

// Child returns the direct child at key without creating it.
func (n *Node[V]) Child(key string) (*Node[V], bool) {
	child, ok := n.children[key]
	return child, ok
}

// Children iterates over direct children in insertion order.
func (n *Node[V]) Children() iter.Seq2[string, *Node[V]] {
	return func(yield func(string, *Node[V]) bool) {
		for _, key := range n.keys {
			if !yield(key, n.children[key]) {
				return
			}
		}
	}
}

// GetOrCreate returns the node at address, creating every missing node on
// the way.
func (n *Node[V]) GetOrCreate(address Address) *Node[V] {
	current := n
	for _, key := range address {
		child, ok := current.children[key]
		if !ok {
			child = newNode[V](current.allowOverwrite)
			current.children[key] = child
			current.keys = append(current.keys, key)
		}
		current = child
	}
	return current
}

// Get returns the node at address without creating anything.
func (n *Node[V]) Get(address Address) (*Node[V], error) {
	current := n
	for i, key := range address {
		child, ok := current.children[key]
		if !ok {
			return nil, errors.Wrapf(dterrors.ErrAddressNotFound, "no node at %q (missing %q)", address.String(), Address(address[:i+1]).String())
		}
		current = child
	}
	return current, nil
}

// Exists reports whether a node is reachable at address. The empty address
// always exists.
func (n *Node[V]) Exists(address Address) bool {
	_, err := n.Get(address)
	return err == nil
}

// Set stores value at address, creating the node if needed.
func (n *Node[V]) Set(address Address, value V) error {
	if err := n.GetOrCreate(address).SetValue(value); err != nil {
		return errors.Wrapf(err, "set %q", address.String())
	}
	return nil
}

// parentOf returns the parent of the node at address together with the last
// key of address.
func (n *Node[V]) parentOf(address Address) (*Node[V], string, error) {
	if len(address) == 0 {
		return nil, "", errors.Wrap(dterrors.ErrAddressNotFound, "empty address: cannot remove a node from itself")
	}
	parent, err := n.Get(address[:len(address)-1])
	if err != nil {
		return nil, "", err
	}
	key := address[len(address)-1]
	if _, ok := parent.children[key]; !ok {
		return nil, "", errors.Wrapf(dterrors.ErrAddressNotFound, "no node at %q", address.String())
	}
	return parent, key, nil
}

func (n *Node[V]) detach(key string) *Node[V] {
	child := n.children[key]
	delete(n.children, key)
	if i := slices.Index(n.keys, key); i >= 0 {
		n.keys = slices.Delete(n.keys, i, i+1)
	}
	child.state = StateRemoved
	return child
}

// PopLeaf removes the node at address together with all of its descendants
// and returns it.
func (n *Node[V]) PopLeaf(address Address) (*Node[V], error) {
	parent, key, err := n.parentOf(address)
	if err != nil {
		return nil, err
	}
	return parent.detach(key), nil
}

// PruneLeaf removes the node at address, but only if it has no children.
func (n *Node[V]) PruneLeaf(address Address) error {
	parent, key, err := n.parentOf(address)
	if err != nil {
		return err
	}
	if !parent.children[key].IsLeaf() {
		return errors.Wrapf(dterrors.ErrNotALeaf, "cannot prune %q", address.String())
	}
	parent.detach(key)
	return nil
}

// PruneMany removes all addresses according to strategy.
//
// With PruneForce, missing addresses are ignored. With PruneWherePossible,
// addresses that are not leaves are skipped. With PruneCheckFirst the batch
// is first tried on a copy, children before parents, and the tree is left
// untouched if any address would fail.
func (n *Node[V]) PruneMany(addresses []Address, strategy PruneStrategy) error {
	switch strategy {
	case PruneForce:
		for _, address := range addresses {
			if _, err := n.PopLeaf(address); err != nil && !errors.Is(err, dterrors.ErrAddressNotFound) {
				return err
			}
		}
		return nil

	case PruneWherePossible:
		for _, address := range addresses {
			if err := n.PruneLeaf(address); err != nil && !errors.Is(err, dterrors.ErrNotALeaf) {
				return err
			}
		}
		return nil

	case PruneCheckFirst:
		sorted := slices.Clone(addresses)
		sort.SliceStable(sorted, func(i, j int) bool {
			return len(sorted[i]) > len(sorted[j])
		})
		simulation := n.Copy()
		for _, address := range sorted {
			if err := simulation.PruneLeaf(address); err != nil {
				return errors.Wrap(err, "pruning cancelled")
			}
		}
		for _, address := range sorted {
			if _, err := n.PopLeaf(address); err != nil {
				return err
			}
		}
		return nil

	default:
		return errors.Errorf("unknown prune strategy %d", strategy)
	}
}

// LeafAddresses yields, depth-first, the address of every descendant that has
// no children. A childless node yields nothing.
func (n *Node[V]) LeafAddresses() iter.Seq[Address] {
	return func(yield func(Address) bool) {
		n.walkLeaves(nil, yield)
	}
}

func (n *Node[V]) walkLeaves(prefix Address, yield func(Address) bool) bool {
	for _, key := range n.keys {
		child := n.children[key]
		address := append(slices.Clone(prefix), key)
		if child.IsLeaf() {
			if !yield(address) {
				return false
			}
			continue
		}
		if !child.walkLeaves(address, yield) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of this node and its subtree. Values are copied
// by assignment.
func (n *Node[V]) Copy() *Node[V] {
	copied := newNode[V](n.allowOverwrite)
	copied.value = n.value
	copied.state = n.state
	for _, key := range n.keys {
		copied.children[key] = n.children[key].Copy()
		copied.keys = append(copied.keys, key)
	}
	return copied
}
