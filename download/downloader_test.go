package download

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// fakeGetter returns a dataset holding the SOP Instance UID. Fetches of
// earlier instances are slower, so completion order differs from input order.
type fakeGetter struct {
	mu       sync.Mutex
	fetched  []string
	failOn   string
	active   atomic.Int32
	maxSeen  atomic.Int32
	slowdown time.Duration
}

func (g *fakeGetter) GetDataset(_ context.Context, ref types.InstanceReference) (*dicom.Dataset, error) {
	n := g.active.Add(1)
	defer g.active.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	g.mu.Lock()
	position := len(g.fetched)
	g.fetched = append(g.fetched, ref.InstanceUID())
	g.mu.Unlock()
	time.Sleep(g.slowdown / time.Duration(position+1))

	if ref.InstanceUID() == g.failOn {
		return nil, errors.New("server error")
	}
	ds := dicom.NewDataset()
	ds.AddElement(dicom.TagSOPInstanceUID, dicom.VR_UI, ref.InstanceUID())
	return ds, nil
}

func studyWithInstances(n int) *types.Study {
	study := types.NewStudy("1", nil)
	series := study.AddSeries("1.1", nil)
	for i := range n {
		series.AddInstance(string(rune('a'+i)), nil)
	}
	return study
}

func collect(t *testing.T, seq func(func(*dicom.Dataset, error) bool)) ([]string, error) {
	t.Helper()
	var uids []string
	for ds, err := range seq {
		if err != nil {
			return uids, err
		}
		uids = append(uids, ds.GetString(dicom.TagSOPInstanceUID))
	}
	return uids, nil
}

func TestDatasets_InputOrder(t *testing.T) {
	getter := &fakeGetter{slowdown: 20 * time.Millisecond}
	downloader, err := NewInstanceDownloader(Config{Getter: getter, MaxWorkers: 3})
	require.NoError(t, err)

	seq, err := downloader.Datasets(context.Background(), []types.Downloadable{studyWithInstances(8)})
	require.NoError(t, err)

	uids, err := collect(t, seq)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, uids)
	assert.LessOrEqual(t, getter.maxSeen.Load(), int32(3))
}

func TestDatasets_RequiresInstances(t *testing.T) {
	getter := &fakeGetter{}
	downloader, err := NewInstanceDownloader(Config{Getter: getter})
	require.NoError(t, err)

	seriesRef, _ := types.NewSeriesReference("1", "1.1")
	_, err = downloader.Datasets(context.Background(), []types.Downloadable{seriesRef})
	assert.ErrorIs(t, err, dterrors.ErrNonInstanceParameter)
	assert.Empty(t, getter.fetched)
}

func TestDatasets_StopsAtFirstError(t *testing.T) {
	getter := &fakeGetter{failOn: "c"}
	downloader, err := NewInstanceDownloader(Config{Getter: getter, MaxWorkers: 1})
	require.NoError(t, err)

	seq, err := downloader.Datasets(context.Background(), []types.Downloadable{studyWithInstances(5)})
	require.NoError(t, err)

	uids, err := collect(t, seq)
	assert.EqualError(t, err, "get InstanceReference 1 -> 1.1 -> c: server error")
	assert.Equal(t, []string{"a", "b"}, uids)
}

func TestDatasets_EarlyBreak(t *testing.T) {
	getter := &fakeGetter{}
	downloader, err := NewInstanceDownloader(Config{Getter: getter, MaxWorkers: 2})
	require.NoError(t, err)

	seq, err := downloader.Datasets(context.Background(), []types.Downloadable{studyWithInstances(6)})
	require.NoError(t, err)

	count := 0
	for _, err := range seq {
		require.NoError(t, err)
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestGetDataset(t *testing.T) {
	downloader, err := NewInstanceDownloader(Config{Getter: &fakeGetter{}})
	require.NoError(t, err)

	ref, err := types.NewInstanceReference("1", "1.1", "x")
	require.NoError(t, err)
	ds, err := downloader.GetDataset(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "x", ds.GetString(dicom.TagSOPInstanceUID))

	_, err = NewInstanceDownloader(Config{})
	assert.Error(t, err)
}
