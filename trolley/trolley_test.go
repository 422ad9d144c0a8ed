package trolley

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomtrolley/caching"
	"github.com/caio-sobreiro/dicomtrolley/dicom"
	"github.com/caio-sobreiro/dicomtrolley/dicomqr"
	"github.com/caio-sobreiro/dicomtrolley/download"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// fullStudy is study 1 with series 1.1 (instances 1.1.1, 1.1.2) and series
// 1.2 (instance 1.2.1).
func fullStudy() *types.Study {
	study := types.NewStudy("1", nil)
	first := study.AddSeries("1.1", nil)
	first.AddInstance("1.1.1", nil)
	first.AddInstance("1.1.2", nil)
	study.AddSeries("1.2", nil).AddInstance("1.2.1", nil)
	return study
}

type recordingSearcher struct {
	byID   []types.QueryLevel
	finds  int
	result []*types.Study
}

func (s *recordingSearcher) FindStudies(context.Context, types.Query) ([]*types.Study, error) {
	s.finds++
	return s.result, nil
}

func (s *recordingSearcher) FindStudyByID(_ context.Context, _ string, level types.QueryLevel) (*types.Study, error) {
	s.byID = append(s.byID, level)
	return fullStudy(), nil
}

// granularDownloader only accepts input at minLevel or deeper and records
// what it was asked for.
type granularDownloader struct {
	minLevel types.ObjectLevel
	got      []types.Reference
}

func (d *granularDownloader) GetDataset(context.Context, types.InstanceReference) (*dicom.Dataset, error) {
	return dicom.NewDataset(), nil
}

func (d *granularDownloader) Datasets(_ context.Context, objects []types.Downloadable) (iter.Seq2[*dicom.Dataset, error], error) {
	var (
		refs []types.Reference
		err  error
	)
	switch d.minLevel {
	case types.LevelInstance:
		var instances []types.InstanceReference
		instances, err = types.ToInstanceRefs(objects)
		for _, ref := range instances {
			refs = append(refs, ref)
		}
	case types.LevelSeries:
		refs, err = types.ToSeriesLevelRefs(objects)
	default:
		refs, err = types.ToReferences(objects, types.LevelStudy)
	}
	if err != nil {
		return nil, err
	}
	d.got = refs
	return func(yield func(*dicom.Dataset, error) bool) {
		for range refs {
			if !yield(dicom.NewDataset(), nil) {
				return
			}
		}
	}, nil
}

func newTestTrolley(t *testing.T, minLevel types.ObjectLevel) (*Trolley, *recordingSearcher, *granularDownloader) {
	t.Helper()
	searcher := &recordingSearcher{}
	downloader := &granularDownloader{minLevel: minLevel}
	trolley, err := New(Config{Searcher: searcher, Downloader: downloader})
	require.NoError(t, err)
	return trolley, searcher, downloader
}

func count(seq iter.Seq2[*dicom.Dataset, error]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

func TestFetchAllDatasets_Fallbacks(t *testing.T) {
	studyRef, _ := types.NewStudyReference("1")
	seriesRef, _ := types.NewSeriesReference("1", "1.1")

	tests := []struct {
		name         string
		minLevel     types.ObjectLevel
		objects      []types.Downloadable
		wantSearches []types.QueryLevel
		wantRefs     int
	}{
		{
			name:     "downloader accepts study references",
			minLevel: types.LevelStudy,
			objects:  []types.Downloadable{studyRef},
			wantRefs: 1,
		},
		{
			name:         "study reference to series level",
			minLevel:     types.LevelSeries,
			objects:      []types.Downloadable{studyRef},
			wantSearches: []types.QueryLevel{types.QueryLevelSeries},
			wantRefs:     2,
		},
		{
			name:         "study reference to instance level",
			minLevel:     types.LevelInstance,
			objects:      []types.Downloadable{studyRef},
			wantSearches: []types.QueryLevel{types.QueryLevelInstance},
			wantRefs:     3,
		},
		{
			name:         "series reference yields only its own instances",
			minLevel:     types.LevelInstance,
			objects:      []types.Downloadable{seriesRef},
			wantSearches: []types.QueryLevel{types.QueryLevelInstance},
			wantRefs:     2,
		},
		{
			name:         "one search per study",
			minLevel:     types.LevelInstance,
			objects:      []types.Downloadable{studyRef, seriesRef},
			wantSearches: []types.QueryLevel{types.QueryLevelInstance},
			wantRefs:     5,
		},
		{
			name:     "full objects need no search",
			minLevel: types.LevelInstance,
			objects:  []types.Downloadable{fullStudy()},
			wantRefs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trolley, searcher, downloader := newTestTrolley(t, tt.minLevel)

			datasets, err := trolley.FetchAllDatasets(context.Background(), tt.objects)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefs, count(datasets))
			assert.Len(t, downloader.got, tt.wantRefs)
			assert.Equal(t, tt.wantSearches, searcher.byID)
		})
	}
}

func TestObtainReferences_StudyWithoutInstances(t *testing.T) {
	trolley, _, _ := newTestTrolley(t, types.LevelInstance)
	trolley.searcher = &emptySearcher{}

	studyRef, _ := types.NewStudyReference("1")
	_, err := trolley.ObtainReferences(context.Background(), []types.Downloadable{studyRef}, types.LevelInstance)
	assert.ErrorIs(t, err, dterrors.ErrNoReferencesFound)
}

type emptySearcher struct{ recordingSearcher }

func (s *emptySearcher) FindStudyByID(_ context.Context, uid string, _ types.QueryLevel) (*types.Study, error) {
	return types.NewStudy(uid, nil), nil
}

func TestFindStudy(t *testing.T) {
	trolley, searcher, _ := newTestTrolley(t, types.LevelStudy)

	searcher.result = []*types.Study{fullStudy()}
	study, err := trolley.FindStudy(context.Background(), types.Query{AccessionNumber: "A1"})
	require.NoError(t, err)
	assert.Equal(t, "1", study.UID())

	searcher.result = nil
	_, err = trolley.FindStudy(context.Background(), types.Query{AccessionNumber: "A1"})
	assert.ErrorIs(t, err, dterrors.ErrUnexpectedResultCount)

	_, err = trolley.FindStudies(context.Background(), types.Query{IncludeFields: []string{"Nonsense"}})
	assert.ErrorIs(t, err, dterrors.ErrInvalidQuery)
	assert.Equal(t, 2, searcher.finds)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{Downloader: &granularDownloader{}})
	assert.Error(t, err)
	_, err = New(Config{Searcher: &recordingSearcher{}})
	assert.Error(t, err)
}

// cFindServer answers STUDY and IMAGE level C-FINDs with the identifiers of
// fullStudy.
type cFindServer struct {
	requests int
}

func (s *cFindServer) SendCFind(_ context.Context, req *dicomqr.CFindRequest) ([]*dicomqr.CFindResponse, error) {
	s.requests++

	var responses []*dicomqr.CFindResponse
	add := func(study, series, instance string) {
		ds := dicom.NewDataset()
		ds.AddElement(dicom.TagStudyInstanceUID, dicom.VR_UI, study)
		if series != "" {
			ds.AddElement(dicom.TagSeriesInstanceUID, dicom.VR_UI, series)
		}
		if instance != "" {
			ds.AddElement(dicom.TagSOPInstanceUID, dicom.VR_UI, instance)
		}
		responses = append(responses, &dicomqr.CFindResponse{Status: dicomqr.StatusPending, Dataset: ds})
	}

	if req.Dataset.GetString(dicom.TagQueryRetrieveLevel) == dicomqr.LevelImage {
		for _, instance := range fullStudy().AllInstances() {
			add("1", instance.Parent().UID(), instance.UID())
		}
	} else {
		add("1", "", "")
	}
	responses = append(responses, &dicomqr.CFindResponse{Status: dicomqr.StatusSuccess})
	return responses, nil
}

type instanceStore struct{}

func (instanceStore) GetDataset(_ context.Context, ref types.InstanceReference) (*dicom.Dataset, error) {
	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagSOPInstanceUID, dicom.VR_UI, ref.InstanceUID())
	return ds, nil
}

func TestTrolley_EndToEnd(t *testing.T) {
	ctx := context.Background()
	server := &cFindServer{}

	searcher, err := dicomqr.NewSearcher(dicomqr.Config{Finder: server})
	require.NoError(t, err)
	downloader, err := download.NewInstanceDownloader(download.Config{Getter: instanceStore{}, MaxWorkers: 2})
	require.NoError(t, err)
	trolley, err := New(Config{
		Searcher:   searcher,
		Downloader: downloader,
		Cache:      caching.NewObjectCache(caching.Config{}),
	})
	require.NoError(t, err)

	studies, err := trolley.FindStudies(ctx, types.Query{StudyInstanceUID: "1"})
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, 1, server.requests)

	datasets, err := trolley.FetchAllDatasets(ctx, []types.Downloadable{studies[0]})
	require.NoError(t, err)
	var uids []string
	for ds, err := range datasets {
		require.NoError(t, err)
		uids = append(uids, ds.GetString(dicom.TagSOPInstanceUID))
	}
	assert.Equal(t, []string{"1.1.1", "1.1.2", "1.2.1"}, uids)
	assert.Equal(t, 2, server.requests)

	// the deep study is now cached
	datasets, err = trolley.FetchAllDatasets(ctx, []types.Downloadable{studies[0]})
	require.NoError(t, err)
	assert.Equal(t, 3, count(datasets))
	assert.Equal(t, 2, server.requests)
}
