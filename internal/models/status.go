package models

// TrainingRequestStatus is the numeric lifecycle code for a training request.
// Lifecycle logic matches on these codes only; display labels are injected
// configuration (see StatusLabels).
type TrainingRequestStatus int

const (
	TrainingRequestNotStarted TrainingRequestStatus = iota
	TrainingRequestLookingForTrainer
	TrainingRequestInQueue
	TrainingRequestNoBatchMatch
	TrainingRequestInProgress
	TrainingRequestSessionsCompleted
	TrainingRequestOnHold
	TrainingRequestDropOff
)

// CanEnterBatch reports whether a request in this status may be assigned to a
// batch. Not-started and looking-for-trainer requests are excluded by policy.
func (s TrainingRequestStatus) CanEnterBatch() bool {
	switch s {
	case TrainingRequestInQueue, TrainingRequestNoBatchMatch, TrainingRequestOnHold, TrainingRequestDropOff:
		return true
	default:
		return false
	}
}

// InBatch reports whether this status implies a non-null batch reference.
func (s TrainingRequestStatus) InBatch() bool {
	return s == TrainingRequestInProgress || s == TrainingRequestSessionsCompleted
}

// VPAStatus is the numeric code for a validation project approval.
type VPAStatus int

const (
	VPARequested VPAStatus = iota
	VPAUnderReview
	VPAApproved
	VPARejected
	VPANeedsRevision
)

// VSRStatus is the numeric code for a validation schedule request.
type VSRStatus int

const (
	VSRRequested VSRStatus = iota
	VSRScheduled
	VSRCompleted
	VSRCancelled
)

// StatusLabels resolves numeric status codes to display labels. The label
// arrays come from configuration so labels can change without redeploying
// the lifecycle logic.
type StatusLabels struct {
	TrainingRequest []string
	VPA             []string
	VSR             []string
}

const unknownLabel = "Unknown"

func labelAt(labels []string, code int) string {
	if code < 0 || code >= len(labels) {
		return unknownLabel
	}
	return labels[code]
}

// TrainingRequestLabel returns the display label for a request status code.
func (l StatusLabels) TrainingRequestLabel(s TrainingRequestStatus) string {
	return labelAt(l.TrainingRequest, int(s))
}

// VPALabel returns the display label for a VPA status code.
func (l StatusLabels) VPALabel(s VPAStatus) string {
	return labelAt(l.VPA, int(s))
}

// VSRLabel returns the display label for a VSR status code.
func (l StatusLabels) VSRLabel(s VSRStatus) string {
	return labelAt(l.VSR, int(s))
}

// Badge classes rendered by the admin frontend, indexed by status code.
var trainingRequestBadges = []string{
	"secondary", "info", "primary", "warning", "success", "success", "dark", "danger",
}

// TrainingRequestBadge returns the display badge class for a request status.
func TrainingRequestBadge(s TrainingRequestStatus) string {
	if int(s) < 0 || int(s) >= len(trainingRequestBadges) {
		return "secondary"
	}
	return trainingRequestBadges[s]
}
