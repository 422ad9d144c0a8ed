// Package download fetches instance datasets concurrently.
package download

import (
	"context"
	"iter"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	"github.com/caio-sobreiro/dicomtrolley/interfaces"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// DefaultMaxWorkers is the number of concurrent fetches when
// Config.MaxWorkers is zero.
const DefaultMaxWorkers = 4

// Config holds downloader configuration
type Config struct {
	Getter     interfaces.DatasetGetter // Fetches single instances (required)
	MaxWorkers int                      // Concurrent fetches (default: 4)
	Logger     *slog.Logger             // Logger for the downloader (default: slog.Default())
}

// InstanceDownloader downloads instance by instance. It needs every input
// reduced to instances before it starts.
type InstanceDownloader struct {
	getter     interfaces.DatasetGetter
	maxWorkers int
	logger     *slog.Logger
}

var _ interfaces.Downloader = (*InstanceDownloader)(nil)

// NewInstanceDownloader creates a downloader
func NewInstanceDownloader(config Config) (*InstanceDownloader, error) {
	if config.Getter == nil {
		return nil, errors.New("download: config requires a Getter")
	}
	if config.MaxWorkers <= 0 {
		config.MaxWorkers = DefaultMaxWorkers
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &InstanceDownloader{
		getter:     config.Getter,
		maxWorkers: config.MaxWorkers,
		logger:     config.Logger,
	}, nil
}

// GetDataset fetches a single instance.
func (d *InstanceDownloader) GetDataset(ctx context.Context, ref types.InstanceReference) (*dicom.Dataset, error) {
	ds, err := d.getter.GetDataset(ctx, ref)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", ref)
	}
	return ds, nil
}

// Datasets fetches all instances contained in objects. It fails with
// ErrNonInstanceParameter before fetching anything if an object does not
// contain its instances.
//
// Fetches run concurrently, up to MaxWorkers at a time. Datasets are yielded
// in input order. The sequence ends after the first error; stopping the
// iteration early cancels outstanding fetches.
func (d *InstanceDownloader) Datasets(ctx context.Context, objects []types.Downloadable) (iter.Seq2[*dicom.Dataset, error], error) {
	refs, err := types.ToInstanceRefs(objects)
	if err != nil {
		return nil, err
	}

	return func(yield func(*dicom.Dataset, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(d.maxWorkers)

		// every channel receives exactly one result
		results := make([]chan result, len(refs))
		for i := range results {
			results[i] = make(chan result, 1)
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i, ref := range refs {
				if gctx.Err() != nil {
					results[i] <- result{err: context.Cause(gctx)}
					continue
				}
				g.Go(func() error {
					ds, err := d.GetDataset(gctx, ref)
					results[i] <- result{ds: ds, err: err}
					return err
				})
			}
			_ = g.Wait()
		}()
		defer func() {
			cancel()
			<-done
		}()

		d.logger.Debug("Downloading instances",
			"count", len(refs),
			"workers", d.maxWorkers)
		for _, ch := range results {
			r := <-ch
			if r.err != nil {
				// report the failure that stopped the group, not the cancellations it caused
				if cause := context.Cause(gctx); cause != nil && errors.Is(r.err, context.Canceled) {
					r.err = cause
				}
				yield(nil, r.err)
				return
			}
			if !yield(r.ds, nil) {
				return
			}
		}
	}, nil
}

type result struct {
	ds  *dicom.Dataset
	err error
}
