package companion

// SubmissionState tracks where a submission is in the pipeline.
type SubmissionState string

const (
	StateIdle                   SubmissionState = "idle"
	StateSubmitting             SubmissionState = "submitting"
	StateAwaitingClassification SubmissionState = "awaiting_classification"
	StateAwaitingResponse       SubmissionState = "awaiting_response"
	StateComplete               SubmissionState = "complete"
	StateFailed                 SubmissionState = "failed"
)

// InFlight reports whether a submission in this state still waits on a remote call.
func (s SubmissionState) InFlight() bool {
	switch s {
	case StateSubmitting, StateAwaitingClassification, StateAwaitingResponse:
		return true
	default:
		return false
	}
}
