package plan

import "errors"

var (
	// ErrGoalRequired is returned when the goal is missing or empty.
	ErrGoalRequired = errors.New("Goal is required and must be a string")

	// ErrInvalidTimeHorizon is returned for horizons other than Today and This Week.
	ErrInvalidTimeHorizon = errors.New(`Time horizon must be either "Today" or "This Week"`)
)

// GenerateRequest asks the proxy for a plan.
type GenerateRequest struct {
	Goal        string      `json:"goal"`
	TimeHorizon TimeHorizon `json:"timeHorizon"`
}

// Validate checks the goal first, then the horizon. Only an empty goal is
// rejected; whitespace is passed through to the model as typed.
func (r GenerateRequest) Validate() error {
	if r.Goal == "" {
		return ErrGoalRequired
	}
	if !r.TimeHorizon.Valid() {
		return ErrInvalidTimeHorizon
	}
	return nil
}
