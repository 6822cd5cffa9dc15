package trace

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/fortiblox/critters/pkg/species"
	"github.com/fortiblox/critters/pkg/world"
)

// Errors.
var (
	ErrRosterMismatch = errors.New("roster does not match trace")
	ErrDigestMismatch = errors.New("state digest mismatch")
)

// MismatchError reports the first epoch at which a replay diverged.
type MismatchError struct {
	Epoch int64
	Want  string
	Got   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("epoch %d: digest %s, trace has %s", e.Epoch, e.Got, e.Want)
}

func (e *MismatchError) Unwrap() error { return ErrDigestMismatch }

// Verify rebuilds the traced run from roster and checks every recorded
// digest. It returns the number of epochs checked.
func Verify(r *Reader, roster species.Roster, logger zerolog.Logger) (int, error) {
	h := r.Header()
	roster = roster.Filter(h.Species...)
	if got := roster.Digest(); got != h.Roster {
		return 0, fmt.Errorf("%w: have %s, trace has %s", ErrRosterMismatch, got, h.Roster)
	}

	env, err := world.New(world.Config{
		Width:    h.Width,
		Height:   h.Height,
		Critters: h.Critters,
		Seed:     h.Seed,
		Logger:   logger,
	}, roster)
	if err != nil {
		return 0, fmt.Errorf("rebuild environment: %w", err)
	}

	checked := 0
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return checked, nil
		}
		if err != nil {
			return checked, err
		}
		for env.Epoch() <= rec.Epoch {
			env.AdvanceEpoch()
		}
		if got := env.Digest(); got != rec.Digest {
			return checked, &MismatchError{Epoch: rec.Epoch, Want: rec.Digest.String(), Got: got.String()}
		}
		checked++
		logger.Debug().Int64("epoch", rec.Epoch).Str("digest", rec.Digest.String()).Msg("epoch verified")
	}
}
