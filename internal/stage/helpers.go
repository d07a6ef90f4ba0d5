package stage

import (
	"chorus/internal/interview"
	"chorus/internal/services"
)

// LoadEnvelope parses the interview's persisted payload envelope.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func LoadEnvelope(iv *interview.Interview) (Envelope, error) {
	env, err := Parse(iv.PayloadJSON)
	if err != nil {
		return Envelope{}, services.Wrap(
			services.ErrValidation, "stage", "parse payload",
			"Stage payload missing or invalid; rerun from upload", err)
	}
	return env, nil
}

// SaveEnvelope serializes the envelope back onto the interview. The caller
// persists the row.
func SaveEnvelope(iv *interview.Interview, env Envelope) error {
	encoded, err := env.Encode()
	if err != nil {
		return services.Wrap(
			services.ErrValidation, "stage", "encode payload",
			"Stage payload could not be serialized", err)
	}
	iv.PayloadJSON = encoded
	return nil
}
