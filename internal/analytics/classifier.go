package analytics

import (
	"strings"

	"github.com/michaelbontyes/dev-board-v2/internal/domain"
)

// Workflow statuses attribution keys on. Matching is case-insensitive.
const (
	StatusTodo       = "To Do"
	StatusInProgress = "In Progress"
	StatusPRReady    = "PR Ready"
	StatusTesting    = "Testing"
	StatusUATReady   = "UAT Ready"
)

// UnknownPerson is the attribution sentinel for items whose history never
// reveals who performed a role. It tallies like any other person.
const UnknownPerson = "Unknown"

// UncertainMark trails item keys whose attribution came from a fallback
// match, or from no match at all.
const UncertainMark = "*"

// Attribution names who performed one role on one item. Certain is true only
// when the role's primary transition matched.
type Attribution struct {
	Person  string
	Certain bool
}

type classifier struct {
	applies  func(domain.WorkItem) bool
	primary  transitionFn
	fallback transitionFn
}

// The three attribution roles. Starter and Reviewer only run on completed
// items; Shipper also runs on anything that reached UAT Ready.
var (
	starter = classifier{
		applies:  func(it domain.WorkItem) bool { return it.Done() },
		primary:  statusChange(StatusTodo, StatusInProgress),
		fallback: statusChange(StatusTodo, ""),
	}
	reviewer = classifier{
		applies:  func(it domain.WorkItem) bool { return it.Done() },
		primary:  statusChange(StatusPRReady, StatusTesting),
		fallback: statusChange(StatusPRReady, ""),
	}
	shipper = classifier{
		applies:  func(it domain.WorkItem) bool { return it.ReachedStatus(StatusUATReady) || it.Done() },
		primary:  statusChange(StatusTesting, StatusUATReady),
		fallback: statusChange(StatusTesting, ""),
	}
)

// statusChange builds a predicate for a status transition. Empty from or to
// matches any value on that side.
func statusChange(from, to string) transitionFn {
	return func(field, f, t string) bool {
		if !strings.EqualFold(field, "status") {
			return false
		}
		if from != "" && !strings.EqualFold(f, from) {
			return false
		}
		if to != "" && !strings.EqualFold(t, to) {
			return false
		}
		return true
	}
}

// classify resolves who performed the role on the item. A fallback match is
// uncertain; no match at all is UnknownPerson, uncertain.
func (c classifier) classify(it domain.WorkItem) Attribution {
	m := findFirstTransition(it.Changelog, c.primary, c.fallback)
	if m == nil {
		return Attribution{Person: UnknownPerson}
	}
	person := m.Actor
	if person == "" {
		person = UnknownPerson
	}
	return Attribution{Person: person, Certain: m.Primary}
}

// markKey renders an item key for report lists, starring uncertain ones.
func markKey(key string, certain bool) string {
	if certain {
		return key
	}
	return key + UncertainMark
}
