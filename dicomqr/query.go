package dicomqr

import (
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// QueryRetrieveLevel values as used in C-FIND identifiers
const (
	LevelStudy  = "STUDY"
	LevelSeries = "SERIES"
	LevelImage  = "IMAGE"
)

const studyDateFormat = "20060102"

// RetrieveLevel translates a query level to its QueryRetrieveLevel value.
func RetrieveLevel(level types.QueryLevel) (string, error) {
	switch level {
	case types.QueryLevelStudy, "":
		return LevelStudy, nil
	case types.QueryLevelSeries:
		return LevelSeries, nil
	case types.QueryLevelInstance:
		return LevelImage, nil
	default:
		return "", errors.Wrapf(dterrors.ErrInvalidQuery, "unknown query level %q", string(level))
	}
}

// DefaultIncludeFields returns the keywords that are always requested at a
// QueryRetrieveLevel, so that responses can be placed in a study tree.
func DefaultIncludeFields(retrieveLevel string) []string {
	switch retrieveLevel {
	case LevelSeries:
		return []string{"StudyInstanceUID", "SeriesInstanceUID"}
	case LevelImage:
		return []string{"StudyInstanceUID", "SeriesInstanceUID", "SOPInstanceUID"}
	default:
		return []string{"StudyInstanceUID"}
	}
}

// Query is a types.Query with the extra matching keys C-FIND supports. All
// string values may contain * as a wildcard.
type Query struct {
	types.Query

	Modality     string
	ProtocolName string
	StudyID      string
}

// FromQuery converts a plain query. This never fails: every plain field has
// a C-FIND equivalent.
func FromQuery(query types.Query) Query {
	return Query{Query: query.Copy()}
}

// Base converts back to a plain query. It fails with ErrUnsupportedParameter
// if a C-FIND only field is set.
func (q Query) Base() (types.Query, error) {
	extra := [][2]string{
		{"Modality", q.Modality},
		{"ProtocolName", q.ProtocolName},
		{"StudyID", q.StudyID},
	}
	for _, field := range extra {
		if field[1] != "" {
			return types.Query{}, errors.Wrapf(dterrors.ErrUnsupportedParameter,
				"%s=%q cannot be expressed in a plain query", field[0], field[1])
		}
	}
	return q.Query.Copy(), nil
}

// StudyDate returns the StudyDate range matching key, or "" if no dates are
// set. Either end may be open: "20240101-", "-20241231".
func (q Query) StudyDate() string {
	if q.MinStudyDate.IsZero() && q.MaxStudyDate.IsZero() {
		return ""
	}
	return formatDate(q.MinStudyDate) + "-" + formatDate(q.MaxStudyDate)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(studyDateFormat)
}

// Dataset builds the C-FIND identifier. Include fields become empty
// elements, which the SCP fills in. Empty matching keys are left out.
func (q Query) Dataset() (*dicom.Dataset, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	level, err := RetrieveLevel(q.QueryLevel)
	if err != nil {
		return nil, err
	}

	ds := dicom.NewDataset()

	includes := slices.Concat(q.IncludeFields, DefaultIncludeFields(level))
	slices.Sort(includes)
	for _, keyword := range slices.Compact(includes) {
		if err := ds.Set(keyword, ""); err != nil {
			return nil, errors.Wrap(dterrors.ErrInvalidQuery, err.Error())
		}
	}

	matching := []struct {
		keyword string
		value   string
	}{
		{"StudyInstanceUID", q.StudyInstanceUID},
		{"AccessionNumber", q.AccessionNumber},
		{"PatientName", q.PatientName},
		{"PatientID", q.PatientID},
		{"ModalitiesInStudy", q.ModalitiesInStudy},
		{"SeriesInstanceUID", q.SeriesInstanceUID},
		{"Modality", q.Modality},
		{"ProtocolName", q.ProtocolName},
		{"StudyID", q.StudyID},
		{"StudyDate", q.StudyDate()},
		{"QueryRetrieveLevel", level},
	}
	for _, m := range matching {
		if m.value == "" {
			continue
		}
		if err := ds.Set(m.keyword, m.value); err != nil {
			return nil, errors.Wrap(dterrors.ErrInvalidQuery, err.Error())
		}
	}
	return ds, nil
}
