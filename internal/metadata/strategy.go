package metadata

import (
	"errors"
)

// errSkip tells firstOf to move on to the next strategy. Any other error
// ends the cascade with no result.
var errSkip = errors.New("metadata: not applicable")

// strategy is one way of deriving an Out from an In.
type strategy[In, Out any] func(In) (Out, error)

// firstOf runs strategies in order and returns the first success.
func firstOf[In, Out any](in In, strategies ...strategy[In, Out]) (Out, bool) {
	var zero Out
	for _, s := range strategies {
		out, err := s(in)
		if err == nil {
			return out, true
		}
		if !errors.Is(err, errSkip) {
			return zero, false
		}
	}
	return zero, false
}
