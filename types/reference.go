package types

import (
	"fmt"

	"github.com/pkg/errors"

	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
)

// Downloadable is anything that can be reduced to references for download.
type Downloadable interface {
	// Reference returns the parent-less address of this entity.
	Reference() Reference

	// ContainedReferences returns references at maxLevel or deeper contained in
	// this entity. It fails with ErrNoReferencesFound when the entity does not
	// carry enough information, for example a Study without any Series.
	ContainedReferences(maxLevel ObjectLevel) ([]Reference, error)
}

// Reference points at a study, series or instance by UID. References carry
// no data and no links; they are comparable and can be used as map keys.
//
// Implementations are StudyReference, SeriesReference and InstanceReference.
type Reference interface {
	Downloadable
	Level() ObjectLevel
	StudyUID() string
	String() string

	isReference()
}

// StudyReference points at a single study.
type StudyReference struct {
	studyUID string
}

// NewStudyReference returns a reference to a study. The UID must not be empty.
func NewStudyReference(studyUID string) (StudyReference, error) {
	if studyUID == "" {
		return StudyReference{}, errors.Wrap(dterrors.ErrInvalidReference, "study reference requires a study UID")
	}
	return StudyReference{studyUID: studyUID}, nil
}

func (r StudyReference) StudyUID() string     { return r.studyUID }
func (r StudyReference) Level() ObjectLevel   { return LevelStudy }
func (r StudyReference) Reference() Reference { return r }
func (r StudyReference) String() string       { return "StudyReference " + r.studyUID }
func (r StudyReference) isReference()         {}

func (r StudyReference) ContainedReferences(maxLevel ObjectLevel) ([]Reference, error) {
	return selfReference(r, maxLevel)
}

// SeriesReference points at a single series within a study.
type SeriesReference struct {
	studyUID  string
	seriesUID string
}

// NewSeriesReference returns a reference to a series. Both UIDs are required.
func NewSeriesReference(studyUID, seriesUID string) (SeriesReference, error) {
	if studyUID == "" || seriesUID == "" {
		return SeriesReference{}, errors.Wrapf(dterrors.ErrInvalidReference,
			"series reference requires study and series UIDs (got %q, %q)", studyUID, seriesUID)
	}
	return SeriesReference{studyUID: studyUID, seriesUID: seriesUID}, nil
}

func (r SeriesReference) StudyUID() string     { return r.studyUID }
func (r SeriesReference) SeriesUID() string    { return r.seriesUID }
func (r SeriesReference) Level() ObjectLevel   { return LevelSeries }
func (r SeriesReference) Reference() Reference { return r }
func (r SeriesReference) isReference()         {}

func (r SeriesReference) String() string {
	return fmt.Sprintf("SeriesReference %s -> %s", r.studyUID, r.seriesUID)
}

func (r SeriesReference) ContainedReferences(maxLevel ObjectLevel) ([]Reference, error) {
	return selfReference(r, maxLevel)
}

// InstanceReference holds everything needed to download a single instance.
type InstanceReference struct {
	studyUID    string
	seriesUID   string
	instanceUID string
}

// NewInstanceReference returns a reference to an instance. All three UIDs
// are required.
func NewInstanceReference(studyUID, seriesUID, instanceUID string) (InstanceReference, error) {
	if studyUID == "" || seriesUID == "" || instanceUID == "" {
		return InstanceReference{}, errors.Wrapf(dterrors.ErrInvalidReference,
			"instance reference requires study, series and instance UIDs (got %q, %q, %q)",
			studyUID, seriesUID, instanceUID)
	}
	return InstanceReference{studyUID: studyUID, seriesUID: seriesUID, instanceUID: instanceUID}, nil
}

func (r InstanceReference) StudyUID() string     { return r.studyUID }
func (r InstanceReference) SeriesUID() string    { return r.seriesUID }
func (r InstanceReference) InstanceUID() string  { return r.instanceUID }
func (r InstanceReference) Level() ObjectLevel   { return LevelInstance }
func (r InstanceReference) Reference() Reference { return r }
func (r InstanceReference) isReference()         {}

func (r InstanceReference) String() string {
	return fmt.Sprintf("InstanceReference %s -> %s -> %s", r.studyUID, r.seriesUID, r.instanceUID)
}

func (r InstanceReference) ContainedReferences(maxLevel ObjectLevel) ([]Reference, error) {
	return selfReference(r, maxLevel)
}

// A reference contains only itself, and only if it is deep enough.
func selfReference(r Reference, maxLevel ObjectLevel) ([]Reference, error) {
	if maxLevel < r.Level() {
		return nil, errors.Wrapf(dterrors.ErrNoReferencesFound,
			"%s does not contain references of level %s or lower", r, maxLevel)
	}
	return []Reference{r}, nil
}

// ToReferences reduces every object to references at maxLevel or deeper.
func ToReferences(objects []Downloadable, maxLevel ObjectLevel) ([]Reference, error) {
	var refs []Reference
	for _, obj := range objects {
		contained, err := obj.ContainedReferences(maxLevel)
		if err != nil {
			return nil, err
		}
		refs = append(refs, contained...)
	}
	return refs, nil
}

// ToInstanceRefs reduces every object to instance references. It fails with
// ErrNonInstanceParameter when an object first has to be expanded with an
// additional query.
func ToInstanceRefs(objects []Downloadable) ([]InstanceReference, error) {
	refs, err := ToReferences(objects, LevelInstance)
	if err != nil {
		return nil, dterrors.NewNonInstanceParameterError(err)
	}
	instances := make([]InstanceReference, 0, len(refs))
	for _, ref := range refs {
		instance, ok := ref.(InstanceReference)
		if !ok {
			return nil, dterrors.NewNonInstanceParameterError(
				errors.Wrapf(dterrors.ErrNoReferencesFound, "%s is not an instance reference", ref))
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// ToSeriesLevelRefs reduces every object to series or instance references.
// It fails with ErrNonSeriesParameter when that is not possible.
func ToSeriesLevelRefs(objects []Downloadable) ([]Reference, error) {
	refs, err := ToReferences(objects, LevelSeries)
	if err != nil {
		return nil, dterrors.NewNonSeriesParameterError(err)
	}
	return refs, nil
}
