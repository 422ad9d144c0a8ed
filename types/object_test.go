package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
)

// a study with two series, one holding three instances and one empty
func sampleStudy() *Study {
	study := NewStudy("1", nil)
	full := study.AddSeries("1.1", nil)
	for _, uid := range []string{"1.1.1", "1.1.2", "1.1.3"} {
		full.AddInstance(uid, nil)
	}
	study.AddSeries("1.2", nil)
	return study
}

func TestBuildersSetParents(t *testing.T) {
	study := sampleStudy()

	series, err := study.Get("1.1")
	require.NoError(t, err)
	instance, err := series.Get("1.1.2")
	require.NoError(t, err)

	assert.Same(t, study, series.Parent())
	assert.Same(t, series, instance.Parent())
	assert.Same(t, study, instance.Root())
	assert.Equal(t, "Instance 1.1.2", instance.String())
	assert.NotNil(t, instance.Data())

	// adding an existing UID returns the existing object
	assert.Same(t, series, study.AddSeries("1.1", dicom.NewDataset()))
	assert.Len(t, study.Series(), 2)

	_, err = study.Get("nope")
	assert.ErrorIs(t, err, dterrors.ErrDICOMObjectNotFound)
	_, err = series.Get("nope")
	assert.ErrorIs(t, err, dterrors.ErrDICOMObjectNotFound)
}

func TestMaxObjectDepth(t *testing.T) {
	study := NewStudy("1", nil)
	assert.Equal(t, LevelStudy, study.MaxObjectDepth())

	series := study.AddSeries("1.1", nil)
	assert.Equal(t, LevelSeries, series.MaxObjectDepth())
	assert.Equal(t, LevelSeries, study.MaxObjectDepth())

	instance := series.AddInstance("1.1.1", nil)
	assert.Equal(t, LevelInstance, instance.MaxObjectDepth())
	assert.Equal(t, LevelInstance, series.MaxObjectDepth())
	assert.Equal(t, LevelInstance, study.MaxObjectDepth())

	// one empty series makes the whole study shallower
	study.AddSeries("1.2", nil)
	assert.Equal(t, LevelSeries, study.MaxObjectDepth())
}

func TestContainedReferences(t *testing.T) {
	study := sampleStudy()
	series, _ := study.Get("1.1")
	empty, _ := study.Get("1.2")
	instance, _ := series.Get("1.1.1")

	tests := []struct {
		name     string
		object   Downloadable
		maxLevel ObjectLevel
		want     int
		wantErr  bool
	}{
		{"study at study level", study, LevelStudy, 1, false},
		{"study at series level", study, LevelSeries, 2, false},
		{"study at instance level", study, LevelInstance, 3, false},
		{"empty study at series level", NewStudy("2", nil), LevelSeries, 0, true},
		{"series at study level", series, LevelStudy, 1, false},
		{"series at series level", series, LevelSeries, 1, false},
		{"series at instance level", series, LevelInstance, 3, false},
		{"empty series at instance level", empty, LevelInstance, 0, true},
		{"instance at any level", instance, LevelStudy, 1, false},
		{"study reference at study level", study.Reference(), LevelStudy, 1, false},
		{"study reference at series level", study.Reference(), LevelSeries, 0, true},
		{"series reference at instance level", series.Reference(), LevelInstance, 0, true},
		{"instance reference at instance level", instance.Reference(), LevelInstance, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := tt.object.ContainedReferences(tt.maxLevel)
			if tt.wantErr {
				assert.ErrorIs(t, err, dterrors.ErrNoReferencesFound)
				return
			}
			require.NoError(t, err)
			assert.Len(t, refs, tt.want)
		})
	}
}

func TestToInstanceRefs(t *testing.T) {
	refs, err := ToInstanceRefs([]Downloadable{sampleStudy()})
	require.NoError(t, err)
	require.Len(t, refs, 3)
	assert.Equal(t, "1", refs[0].StudyUID())
	assert.Equal(t, "1.1", refs[0].SeriesUID())
	assert.Equal(t, "1.1.3", refs[2].InstanceUID())

	_, err = ToInstanceRefs([]Downloadable{NewStudy("2", nil)})
	assert.ErrorIs(t, err, dterrors.ErrNonInstanceParameter)
	assert.ErrorIs(t, err, dterrors.ErrNoReferencesFound)

	seriesRef, err := NewSeriesReference("1", "1.1")
	require.NoError(t, err)
	_, err = ToInstanceRefs([]Downloadable{seriesRef})
	assert.ErrorIs(t, err, dterrors.ErrNonInstanceParameter)
}

func TestToSeriesLevelRefs(t *testing.T) {
	study := sampleStudy()
	instance := study.AllInstances()[0]

	refs, err := ToSeriesLevelRefs([]Downloadable{study, instance})
	require.NoError(t, err)
	assert.Equal(t, []Reference{
		SeriesReference{studyUID: "1", seriesUID: "1.1"},
		SeriesReference{studyUID: "1", seriesUID: "1.2"},
		instance.Reference(),
	}, refs)

	_, err = ToSeriesLevelRefs([]Downloadable{StudyReference{studyUID: "1"}})
	assert.ErrorIs(t, err, dterrors.ErrNonSeriesParameter)
	assert.False(t, errors.Is(err, dterrors.ErrNonInstanceParameter))
}

func TestWalk(t *testing.T) {
	var visited []string
	Walk(sampleStudy(), func(obj Object) {
		visited = append(visited, obj.UID())
	})
	assert.Equal(t, []string{"1", "1.1", "1.1.1", "1.1.2", "1.1.3", "1.2"}, visited)
}
