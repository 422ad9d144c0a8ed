package dicomqr

import (
	"github.com/pkg/errors"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
	dterrors "github.com/caio-sobreiro/dicomtrolley/errors"
	"github.com/caio-sobreiro/dicomtrolley/tree"
	"github.com/caio-sobreiro/dicomtrolley/types"
)

// ParseTree assembles the flat list of C-FIND identifiers into studies.
//
// Every identifier carries the UIDs of all levels above its own, so each one
// can be inserted at its study/series/instance address independently of the
// order in which they arrive. Receiving two identifiers for the same address
// is an error.
type ParseTree struct {
	root *tree.Node[*dicom.Dataset]
}

// NewParseTree creates an empty tree
func NewParseTree() *ParseTree {
	return &ParseTree{root: tree.New[*dicom.Dataset](tree.ForbidOverwrite())}
}

// Insert places ds at the address given by its StudyInstanceUID,
// SeriesInstanceUID and SOPInstanceUID.
func (p *ParseTree) Insert(ds *dicom.Dataset) error {
	study := ds.GetString(dicom.TagStudyInstanceUID)
	series := ds.GetString(dicom.TagSeriesInstanceUID)
	instance := ds.GetString(dicom.TagSOPInstanceUID)

	var address tree.Address
	switch {
	case study == "":
		return errors.Wrap(dterrors.ErrInvalidReference, "identifier without StudyInstanceUID")
	case instance != "" && series == "":
		return errors.Wrapf(dterrors.ErrInvalidReference,
			"identifier for instance %s has no SeriesInstanceUID", instance)
	case instance != "":
		address = tree.Address{study, series, instance}
	case series != "":
		address = tree.Address{study, series}
	default:
		address = tree.Address{study}
	}

	if err := p.root.Set(address, ds); err != nil {
		return errors.Wrapf(err, "insert identifier at %s", address)
	}
	return nil
}

// Studies converts the tree to studies with their series and instances, in
// the order they were first seen. Levels for which no identifier was received
// get an empty dataset.
func (p *ParseTree) Studies() []*types.Study {
	var studies []*types.Study
	for studyUID, studyNode := range p.root.Children() {
		study := types.NewStudy(studyUID, valueOf(studyNode))
		for seriesUID, seriesNode := range studyNode.Children() {
			series := study.AddSeries(seriesUID, valueOf(seriesNode))
			for instanceUID, instanceNode := range seriesNode.Children() {
				series.AddInstance(instanceUID, valueOf(instanceNode))
			}
		}
		studies = append(studies, study)
	}
	return studies
}

func valueOf(node *tree.Node[*dicom.Dataset]) *dicom.Dataset {
	if ds, ok := node.Value(); ok {
		return ds
	}
	return nil
}

// ParseResponses inserts every identifier and returns the resulting studies.
func ParseResponses(identifiers []*dicom.Dataset) ([]*types.Study, error) {
	parseTree := NewParseTree()
	for _, ds := range identifiers {
		if err := parseTree.Insert(ds); err != nil {
			return nil, err
		}
	}
	return parseTree.Studies(), nil
}
