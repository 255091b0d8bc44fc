package publish

// State tracks one artifact through a publication run:
//
//	Unchecked -> Unchanged
//	Unchecked -> Changed -> Publishing -> Published
//	                                   -> PublishFailed
type State int

const (
	StateUnchecked State = iota
	StateUnchanged
	StateChanged
	StatePublishing
	StatePublished
	StatePublishFailed
)

var stateNames = [...]string{
	StateUnchecked:     "unchecked",
	StateUnchanged:     "unchanged",
	StateChanged:       "changed",
	StatePublishing:    "publishing",
	StatePublished:     "published",
	StatePublishFailed: "publish_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Final reports whether no further transition can happen in this run.
func (s State) Final() bool {
	return s == StateUnchanged || s == StatePublished || s == StatePublishFailed
}
