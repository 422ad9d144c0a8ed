package trolley

import (
	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/caching"
	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/tree"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// ObjectTree merges objects of mixed depth into complete studies that can
// be looked up by reference. It has no expiry; it lives for a single
// download.
//
// Every object is merged together with its ancestors and all its
// descendants. An object added later replaces the data of an earlier one at
// the same address. Studies returned by the tree own copies of the datasets.
type ObjectTree struct {
	root    *tree.Node[*dicom.Dataset]
	studies map[string]*types.Study
}

// NewObjectTree creates a tree holding objects
func NewObjectTree(objects ...types.Object) *ObjectTree {
	t := &ObjectTree{
		root:    tree.New[*dicom.Dataset](),
		studies: make(map[string]*types.Study),
	}
	for _, obj := range objects {
		t.merge(obj)
	}
	for _, uid := range t.root.Keys() {
		t.rebuild(uid)
	}
	return t
}

// AddStudy inserts study, replacing any study with the same UID.
func (t *ObjectTree) AddStudy(study *types.Study) {
	// a missing study is fine here
	_, _ = t.root.PopLeaf(tree.Address{study.UID()})
	t.merge(study)
	t.rebuild(study.UID())
}

// Retrieve returns the object for ref. It fails with ErrDICOMObjectNotFound
// if the study, series or instance is not in the tree.
func (t *ObjectTree) Retrieve(ref types.Reference) (types.Object, error) {
	study, ok := t.studies[ref.StudyUID()]
	if !ok {
		return nil, errors.Wrapf(dterrors.ErrDICOMObjectNotFound, "study for %s not found", ref)
	}
	switch r := ref.(type) {
	case types.StudyReference:
		return study, nil
	case types.SeriesReference:
		return study.Get(r.SeriesUID())
	case types.InstanceReference:
		series, err := study.Get(r.SeriesUID())
		if err != nil {
			return nil, err
		}
		return series.Get(r.InstanceUID())
	default:
		return nil, errors.Wrapf(dterrors.ErrInvalidReference, "cannot retrieve %v", ref)
	}
}

// Studies returns all studies in the order they were first added.
func (t *ObjectTree) Studies() []*types.Study {
	studies := make([]*types.Study, 0, len(t.studies))
	for _, uid := range t.root.Keys() {
		studies = append(studies, t.studies[uid])
	}
	return studies
}

func (t *ObjectTree) merge(obj types.Object) {
	var ancestors []types.Object
	switch o := obj.(type) {
	case *types.Series:
		ancestors = []types.Object{o.Parent()}
	case *types.Instance:
		ancestors = []types.Object{o.Root(), o.Parent()}
	}
	for _, ancestor := range ancestors {
		t.set(ancestor)
	}
	types.Walk(obj, t.set)
}

func (t *ObjectTree) set(obj types.Object) {
	address, err := caching.ToAddress(obj.Reference())
	if err != nil {
		return
	}
	// overwrite is allowed on this tree
	_ = t.root.Set(address, obj.Data())
}

func (t *ObjectTree) rebuild(studyUID string) {
	node, ok := t.root.Child(studyUID)
	if !ok {
		delete(t.studies, studyUID)
		return
	}
	study := types.NewStudy(studyUID, dataOf(node))
	for seriesUID, seriesNode := range node.Children() {
		series := study.AddSeries(seriesUID, dataOf(seriesNode))
		for instanceUID, instanceNode := range seriesNode.Children() {
			series.AddInstance(instanceUID, dataOf(instanceNode))
		}
	}
	t.studies[studyUID] = study
}

func dataOf(node *tree.Node[*dicom.Dataset]) *dicom.Dataset {
	ds, _ := node.Value()
	return ds.Copy()
}
