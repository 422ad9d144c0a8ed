package dicomqr

import (
	"context"

	"github.com/caio-sobreiro/dicomtrolley/dicom"
)

// StudyRootFindSOPClassUID is the Study Root Query/Retrieve Information Model - FIND
const StudyRootFindSOPClassUID = "1.2.840.10008.5.1.4.1.2.2.1"

// Status codes
const (
	StatusSuccess        = 0x0000
	StatusPending        = 0xFF00
	StatusPendingWarning = 0xFF01
	StatusCancel         = 0xFE00
)

// CFindRequest encapsulates the information required to perform a C-FIND query.
type CFindRequest struct {
	SOPClassUID string
	MessageID   uint16
	Priority    uint16
	Dataset     *dicom.Dataset
}

// CFindResponse represents a single C-FIND response from the SCP.
type CFindResponse struct {
	Status    uint16
	MessageID uint16
	Dataset   *dicom.Dataset
}

// Finder sends a C-FIND request over an established association and returns
// all responses in order, the final (non-pending) response last.
type Finder interface {
	SendCFind(ctx context.Context, req *CFindRequest) ([]*CFindResponse, error)
}
