package interfaces

import (
	"context"
	"iter"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// DatasetGetter retrieves the full dataset of a single instance
type DatasetGetter interface {
	GetDataset(ctx context.Context, ref types.InstanceReference) (*dicom.Dataset, error)
}

// Downloader retrieves datasets for studies, series and instances.
type Downloader interface {
	DatasetGetter

	// Datasets returns a sequence of all datasets contained in objects. The
	// sequence is finite and can be consumed once.
	//
	// Downloaders that need finer input fail before returning a sequence,
	// with ErrNonSeriesParameter or ErrNonInstanceParameter.
	Datasets(ctx context.Context, objects []types.Downloadable) (iter.Seq2[*dicom.Dataset, error], error)
}
