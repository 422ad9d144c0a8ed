package types

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
)

// Object is a Study, Series or Instance together with its DICOM data.
//
// Objects form a strict tree. Parent links are only set by the builders
// (NewStudy, Study.AddSeries, Series.AddInstance), so a child always belongs
// to the parent it was created from.
type Object interface {
	Downloadable

	UID() string
	Data() *dicom.Dataset
	Level() ObjectLevel
	String() string

	// Children returns the objects one level down, in insertion order.
	Children() []Object

	// Root returns the study this object belongs to.
	Root() *Study

	AllSeries() []*Series
	AllInstances() []*Instance

	// MaxObjectDepth returns the deepest level populated below this object.
	MaxObjectDepth() ObjectLevel

	isObject()
}

// Study is the root of the DICOM hierarchy
type Study struct {
	uid    string
	data   *dicom.Dataset
	series []*Series
}

// Series is one acquisition within a study
type Series struct {
	uid       string
	data      *dicom.Dataset
	parent    *Study
	instances []*Instance
}

// Instance is a single DICOM object, typically one image slice
type Instance struct {
	uid    string
	data   *dicom.Dataset
	parent *Series
}

// NewStudy creates a study without series. A nil dataset is replaced by an
// empty one.
func NewStudy(uid string, data *dicom.Dataset) *Study {
	return &Study{uid: uid, data: orEmpty(data)}
}

// AddSeries creates a series under s and returns it. If a series with this
// UID already exists, the existing one is returned and data is ignored.
func (s *Study) AddSeries(uid string, data *dicom.Dataset) *Series {
	for _, existing := range s.series {
		if existing.uid == uid {
			return existing
		}
	}
	series := &Series{uid: uid, data: orEmpty(data), parent: s}
	s.series = append(s.series, series)
	return series
}

// AddInstance creates an instance under s and returns it. If an instance
// with this UID already exists, the existing one is returned.
func (s *Series) AddInstance(uid string, data *dicom.Dataset) *Instance {
	for _, existing := range s.instances {
		if existing.uid == uid {
			return existing
		}
	}
	instance := &Instance{uid: uid, data: orEmpty(data), parent: s}
	s.instances = append(s.instances, instance)
	return instance
}

func orEmpty(data *dicom.Dataset) *dicom.Dataset {
	if data == nil {
		return dicom.NewDataset()
	}
	return data
}

// Study

func (s *Study) UID() string          { return s.uid }
func (s *Study) Data() *dicom.Dataset { return s.data }
func (s *Study) Level() ObjectLevel   { return LevelStudy }
func (s *Study) Root() *Study         { return s }
func (s *Study) String() string       { return "Study " + s.uid }
func (s *Study) isObject()            {}

// Series returns the series of this study in insertion order.
func (s *Study) Series() []*Series { return s.series }

// Get returns the series with the given UID.
func (s *Study) Get(seriesUID string) (*Series, error) {
	for _, series := range s.series {
		if series.uid == seriesUID {
			return series, nil
		}
	}
	return nil, errors.Wrapf(dterrors.ErrDICOMObjectNotFound, "series %s not found in %s", seriesUID, s)
}

func (s *Study) Children() []Object {
	children := make([]Object, len(s.series))
	for i, series := range s.series {
		children[i] = series
	}
	return children
}

func (s *Study) AllSeries() []*Series { return s.series }

func (s *Study) AllInstances() []*Instance {
	var instances []*Instance
	for _, series := range s.series {
		instances = append(instances, series.instances...)
	}
	return instances
}

// MaxObjectDepth is the shallowest depth among the series of s, so a study
// only reports INSTANCE when every series holds instances.
func (s *Study) MaxObjectDepth() ObjectLevel {
	if len(s.series) == 0 {
		return LevelStudy
	}
	depth := LevelInstance
	for _, series := range s.series {
		if d := series.MaxObjectDepth(); d > depth {
			depth = d
		}
	}
	return depth
}

func (s *Study) Reference() Reference {
	return StudyReference{studyUID: s.uid}
}

func (s *Study) ContainedReferences(maxLevel ObjectLevel) ([]Reference, error) {
	switch maxLevel {
	case LevelStudy:
		return []Reference{s.Reference()}, nil
	case LevelSeries:
		return extractRefs(s, s.series)
	default:
		return extractRefs(s, s.AllInstances())
	}
}

// Series

func (s *Series) UID() string          { return s.uid }
func (s *Series) Data() *dicom.Dataset { return s.data }
func (s *Series) Level() ObjectLevel   { return LevelSeries }
func (s *Series) Parent() *Study       { return s.parent }
func (s *Series) Root() *Study         { return s.parent }
func (s *Series) isObject()            {}

func (s *Series) String() string {
	return fmt.Sprintf("Series %s", s.uid)
}

// Instances returns the instances of this series in insertion order.
func (s *Series) Instances() []*Instance { return s.instances }

// Get returns the instance with the given UID.
func (s *Series) Get(instanceUID string) (*Instance, error) {
	for _, instance := range s.instances {
		if instance.uid == instanceUID {
			return instance, nil
		}
	}
	return nil, errors.Wrapf(dterrors.ErrDICOMObjectNotFound, "instance %s not found in %s", instanceUID, s)
}

func (s *Series) Children() []Object {
	children := make([]Object, len(s.instances))
	for i, instance := range s.instances {
		children[i] = instance
	}
	return children
}

func (s *Series) AllSeries() []*Series      { return []*Series{s} }
func (s *Series) AllInstances() []*Instance { return s.instances }

func (s *Series) MaxObjectDepth() ObjectLevel {
	if len(s.instances) > 0 {
		return LevelInstance
	}
	return LevelSeries
}

func (s *Series) Reference() Reference {
	return SeriesReference{studyUID: s.parent.uid, seriesUID: s.uid}
}

func (s *Series) ContainedReferences(maxLevel ObjectLevel) ([]Reference, error) {
	if maxLevel == LevelInstance {
		return extractRefs(s, s.instances)
	}
	return []Reference{s.Reference()}, nil
}

// Instance

func (i *Instance) UID() string                 { return i.uid }
func (i *Instance) Data() *dicom.Dataset        { return i.data }
func (i *Instance) Level() ObjectLevel          { return LevelInstance }
func (i *Instance) Parent() *Series             { return i.parent }
func (i *Instance) Root() *Study                { return i.parent.parent }
func (i *Instance) Children() []Object          { return nil }
func (i *Instance) AllSeries() []*Series        { return []*Series{i.parent} }
func (i *Instance) AllInstances() []*Instance   { return []*Instance{i} }
func (i *Instance) MaxObjectDepth() ObjectLevel { return LevelInstance }
func (i *Instance) isObject()                   {}

func (i *Instance) String() string {
	return fmt.Sprintf("Instance %s", i.uid)
}

func (i *Instance) Reference() Reference {
	return InstanceReference{
		studyUID:    i.parent.parent.uid,
		seriesUID:   i.parent.uid,
		instanceUID: i.uid,
	}
}

func (i *Instance) ContainedReferences(ObjectLevel) ([]Reference, error) {
	return []Reference{i.Reference()}, nil
}

func extractRefs[O Object](owner Object, objects []O) ([]Reference, error) {
	if len(objects) == 0 {
		return nil, errors.Wrapf(dterrors.ErrNoReferencesFound, "%s has no children to reference", owner)
	}
	refs := make([]Reference, len(objects))
	for i, obj := range objects {
		refs[i] = obj.Reference()
	}
	return refs, nil
}

// Walk calls fn for obj and every object below it, parents before children.
func Walk(obj Object, fn func(Object)) {
	fn(obj)
	for _, child := range obj.Children() {
		Walk(child, fn)
	}
}
