package processor

import (
	"errors"
	"fmt"

	"drivefetch/models"
)

// State is the terminal state of one file after materialization
type State int

const (
	StatePending State = iota
	// StatePlanned marks a file a dry-run would have transferred.
	StatePlanned
	StateSkipped
	StateTransferFailed
	// StateTransferred is final only when checksum verification is off.
	StateTransferred
	StateVerified
	StateUnverifiable
	StateTerminalMismatch
)

var stateNames = map[State]string{
	StatePending:          "pending",
	StatePlanned:          "planned",
	StateSkipped:          "skipped",
	StateTransferFailed:   "transfer failed",
	StateTransferred:      "transferred",
	StateVerified:         "verified",
	StateUnverifiable:     "unverifiable",
	StateTerminalMismatch: "checksum mismatch",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Check is the result of comparing a file on disk with its declared checksum
type Check int

const (
	CheckNone Check = iota
	CheckMatch
	CheckMismatch
	CheckUnknown
	CheckFailed
)

// Outcome records what happened to one file
type Outcome struct {
	Entry    *models.Entry
	Path     string
	State    State
	Check    Check
	Attempts int
	// Written is set once an attempt created the destination file
	Written  bool
	Err      error
}

// Transferred reports whether the destination file was written, even partially
func (o Outcome) Transferred() bool {
	return o.Written
}

// Retried reports whether a checksum mismatch triggered a second transfer
func (o Outcome) Retried() bool {
	return o.Attempts > 1
}

// Summary aggregates the outcomes of one materialization
type Summary struct {
	Outcomes []Outcome
	counts   map[State]int
}

// NewSummary folds outcomes into per-state counts
func NewSummary(outcomes []Outcome) *Summary {
	s := &Summary{Outcomes: outcomes, counts: make(map[State]int)}
	for _, o := range outcomes {
		s.counts[o.State]++
	}
	return s
}

// Count returns how many files ended in state
func (s *Summary) Count(state State) int {
	return s.counts[state]
}

// Total returns the number of files visited
func (s *Summary) Total() int {
	return len(s.Outcomes)
}

// Transferred returns the files bytes were written for, in traversal order
func (s *Summary) Transferred() models.Collection {
	var c models.Collection
	for _, o := range s.Outcomes {
		if o.Transferred() {
			c = append(c, o.Entry)
		}
	}
	return c
}

// Failures returns transfer and integrity errors in traversal order
func (s *Summary) Failures() []error {
	var errs []error
	for _, o := range s.Outcomes {
		if o.Err == nil || errors.Is(o.Err, ErrIntegrityUnknown) {
			continue
		}
		if o.State == StateTransferFailed || o.State == StateTerminalMismatch ||
			o.Check == CheckMismatch || o.Check == CheckFailed {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// OK reports whether no file failed to transfer or verify
func (s *Summary) OK() bool {
	return s.Count(StateTransferFailed) == 0 && s.Count(StateTerminalMismatch) == 0
}

func (s *Summary) String() string {
	downloaded := s.Count(StateTransferred) + s.Count(StateVerified) + s.Count(StateUnverifiable)
	return fmt.Sprintf("Files processed: %d, downloaded: %d, verified: %d, unverifiable: %d, skipped: %d, checksum mismatches: %d, failed: %d",
		s.Total(), downloaded, s.Count(StateVerified), s.Count(StateUnverifiable),
		s.Count(StateSkipped), s.Count(StateTerminalMismatch), s.Count(StateTransferFailed))
}
