package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
)

// Query holds the search parameters every searcher understands. Empty fields
// are not used for filtering.
type Query struct {
	StudyInstanceUID  string `json:"StudyInstanceUID,omitempty"`
	AccessionNumber   string `json:"AccessionNumber,omitempty"`
	PatientName       string `json:"PatientName,omitempty"`
	PatientID         string `json:"PatientID,omitempty"`
	ModalitiesInStudy string `json:"ModalitiesInStudy,omitempty"`
	SeriesInstanceUID string `json:"SeriesInstanceUID,omitempty"`

	// QueryLevel determines how deep the returned studies are. Empty means
	// QueryLevelStudy.
	QueryLevel QueryLevel `json:"query_level,omitempty"`

	MinStudyDate time.Time `json:"min_study_date,omitzero"`
	MaxStudyDate time.Time `json:"max_study_date,omitzero"`

	// IncludeFields are DICOM keywords to return in addition to the defaults.
	IncludeFields []string `json:"include_fields,omitempty"`
}

// Level returns the query level, defaulting to QueryLevelStudy.
func (q Query) Level() QueryLevel {
	if q.QueryLevel == "" {
		return QueryLevelStudy
	}
	return q.QueryLevel
}

// Validate checks the query level and include fields.
func (q Query) Validate() error {
	if !q.Level().Valid() {
		return errors.Wrapf(dterrors.ErrInvalidQuery, "unknown query level %q", string(q.QueryLevel))
	}
	for _, keyword := range q.IncludeFields {
		if _, ok := dicom.TagForKeyword(keyword); !ok {
			return errors.Wrapf(dterrors.ErrInvalidQuery, "unknown include field %q", keyword)
		}
	}
	if !q.MinStudyDate.IsZero() && !q.MaxStudyDate.IsZero() && q.MaxStudyDate.Before(q.MinStudyDate) {
		return errors.Wrap(dterrors.ErrInvalidQuery, "max study date is before min study date")
	}
	return nil
}

func (q Query) normalized() Query {
	n := q.Copy()
	n.QueryLevel = q.Level()
	if !n.MinStudyDate.IsZero() {
		n.MinStudyDate = n.MinStudyDate.UTC()
	}
	if !n.MaxStudyDate.IsZero() {
		n.MaxStudyDate = n.MaxStudyDate.UTC()
	}
	if len(n.IncludeFields) > 0 {
		slices.Sort(n.IncludeFields)
		n.IncludeFields = slices.Compact(n.IncludeFields)
	} else {
		n.IncludeFields = nil
	}
	return n
}

// Signature returns a canonical JSON form of the query. Queries that differ
// only in field order, include field order or time zone of the dates have
// the same signature.
func (q Query) Signature() (string, error) {
	raw, err := json.Marshal(q.normalized())
	if err != nil {
		return "", errors.Wrap(err, "marshal query")
	}
	canonical, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return "", errors.Wrap(err, "canonicalize query")
	}
	return string(canonical), nil
}

// ShortString lists only the parameters that are set, for log messages.
func (q Query) ShortString() string {
	var parts []string
	add := func(name, value string) {
		if value != "" {
			parts = append(parts, name+":"+value)
		}
	}
	add("StudyInstanceUID", q.StudyInstanceUID)
	add("AccessionNumber", q.AccessionNumber)
	add("PatientName", q.PatientName)
	add("PatientID", q.PatientID)
	add("ModalitiesInStudy", q.ModalitiesInStudy)
	add("SeriesInstanceUID", q.SeriesInstanceUID)
	add("query_level", string(q.Level()))
	if !q.MinStudyDate.IsZero() {
		add("min_study_date", q.MinStudyDate.Format(time.DateOnly))
	}
	if !q.MaxStudyDate.IsZero() {
		add("max_study_date", q.MaxStudyDate.Format(time.DateOnly))
	}
	if len(q.IncludeFields) > 0 {
		add("include_fields", fmt.Sprintf("%v", q.IncludeFields))
	}
	return "Query: {" + strings.Join(parts, ", ") + "}"
}

// Copy returns a deep copy of q.
func (q Query) Copy() Query {
	return deepcopy.Copy(q).(Query)
}
