// Package dicomqr implements searching over DICOM Query/Retrieve (C-FIND).
//
// The association itself is provided by a Finder. This package translates
// queries to C-FIND identifiers, checks response statuses, and assembles the
// flat list of responses into studies.
package dicomqr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/interfaces"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// Config holds searcher configuration
type Config struct {
	Finder      Finder       // Sends C-FIND requests (required)
	SOPClassUID string       // Information model (default: Study Root FIND)
	MessageID   uint16       // Message ID of the request (default: 1)
	Priority    uint16       // Request priority (default: 0, medium)
	Logger      *slog.Logger // Logger for the searcher (default: slog.Default())
}

// Searcher finds studies with C-FIND
type Searcher struct {
	finder      Finder
	sopClassUID string
	messageID   uint16
	priority    uint16
	logger      *slog.Logger
}

var _ interfaces.Searcher = (*Searcher)(nil)

// NewSearcher creates a searcher
func NewSearcher(config Config) (*Searcher, error) {
	if config.Finder == nil {
		return nil, errors.New("dicomqr: config requires a Finder")
	}
	if config.SOPClassUID == "" {
		config.SOPClassUID = StudyRootFindSOPClassUID
	}
	if config.MessageID == 0 {
		config.MessageID = 1
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Searcher{
		finder:      config.Finder,
		sopClassUID: config.SOPClassUID,
		messageID:   config.MessageID,
		priority:    config.Priority,
		logger:      config.Logger,
	}, nil
}

// FindStudies implements interfaces.Searcher
func (s *Searcher) FindStudies(ctx context.Context, query types.Query) ([]*types.Study, error) {
	return s.Find(ctx, FromQuery(query))
}

// FindStudyByID returns the one study with this StudyInstanceUID, populated
// down to level.
func (s *Searcher) FindStudyByID(ctx context.Context, studyUID string, level types.QueryLevel) (*types.Study, error) {
	return interfaces.FindStudy(ctx, s, types.Query{
		StudyInstanceUID: studyUID,
		QueryLevel:       level,
	})
}

// Find performs a C-FIND for query and returns the matching studies.
func (s *Searcher) Find(ctx context.Context, query Query) ([]*types.Study, error) {
	identifier, err := query.Dataset()
	if err != nil {
		return nil, err
	}

	req := &CFindRequest{
		SOPClassUID: s.sopClassUID,
		MessageID:   s.messageID,
		Priority:    s.priority,
		Dataset:     identifier,
	}
	responses, err := s.finder.SendCFind(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "send C-FIND")
	}

	identifiers, err := s.collect(responses)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("C-FIND completed",
		"query", query.ShortString(),
		"identifiers", len(identifiers))
	return ParseResponses(identifiers)
}

// collect returns the identifiers of all pending responses and checks the
// final status.
func (s *Searcher) collect(responses []*CFindResponse) ([]*dicom.Dataset, error) {
	var identifiers []*dicom.Dataset
	for i, rsp := range responses {
		status := dterrors.NewDIMSEError("C-FIND", rsp.Status, "")
		if status.IsPending() {
			if rsp.Dataset != nil {
				identifiers = append(identifiers, rsp.Dataset)
			}
			continue
		}
		if i != len(responses)-1 {
			s.logger.Warn("Ignoring C-FIND responses after final status",
				"ignored", len(responses)-1-i)
		}
		switch {
		case status.IsSuccess():
			return identifiers, nil
		case status.IsWarning():
			s.logger.Warn("C-FIND completed with warning",
				"status", fmt.Sprintf("0x%04X", rsp.Status))
			return identifiers, nil
		case rsp.Status == StatusCancel:
			status.Msg = "cancelled by SCP"
			return nil, status
		default:
			status.Msg = "query failed"
			return nil, status
		}
	}
	return nil, dterrors.NewDIMSEError("C-FIND", StatusPending, "no final response received")
}
