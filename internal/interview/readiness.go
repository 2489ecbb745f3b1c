package interview

import "strings"

const (
	// MinUserTurns is the minimum number of user turns before the
	// model's marker is honored.
	MinUserTurns = 5
	// MaxUserTurns is the hard cap: at this many user turns the session
	// is ready for analysis whether or not the marker ever appeared.
	MaxUserTurns = 8
)

// Ready reports whether a session is ready for analysis after its
// userTurns-th user turn, given whether the reply carried the marker.
// The marker is a probabilistic signal from untrusted text, so it is
// never required: the hard cap guarantees readiness without it.
func Ready(userTurns int, markerPresent bool) bool {
	if userTurns >= MaxUserTurns {
		return true
	}
	return userTurns >= MinUserTurns && markerPresent
}

// StripMarker removes every occurrence of the marker from text and
// reports whether at least one was present.
func StripMarker(text string) (clean string, present bool) {
	if !strings.Contains(text, Marker) {
		return text, false
	}
	return strings.TrimSpace(strings.ReplaceAll(text, Marker, "")), true
}

// markerFilter suppresses the marker from a stream of text fragments.
// Fragments may split the marker at any byte, so the filter holds back
// any trailing run that could still grow into a full marker.
type markerFilter struct {
	pending string
}

// feed accepts the next fragment and returns the text safe to emit.
func (f *markerFilter) feed(chunk string) string {
	f.pending += chunk
	f.pending = strings.ReplaceAll(f.pending, Marker, "")

	hold := 0
	max := len(Marker) - 1
	if max > len(f.pending) {
		max = len(f.pending)
	}
	for i := max; i > 0; i-- {
		if strings.HasSuffix(f.pending, Marker[:i]) {
			hold = i
			break
		}
	}

	out := f.pending[:len(f.pending)-hold]
	f.pending = f.pending[len(f.pending)-hold:]
	return out
}

// flush returns whatever held-back text turned out not to be a marker.
func (f *markerFilter) flush() string {
	out := strings.ReplaceAll(f.pending, Marker, "")
	f.pending = ""
	return out
}
