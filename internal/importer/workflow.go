package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/treefix50/recapadmin/internal/catalog"
	"github.com/treefix50/recapadmin/internal/seriesjson"
)

// State is the step a Workflow has reached.
type State int

const (
	StateIdle State = iota
	StateVerified
	StateFirstConfirmed
	StateSecondConfirmed
	StateImporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateVerified:
		return "verified"
	case StateFirstConfirmed:
		return "first-confirmed"
	case StateSecondConfirmed:
		return "second-confirmed"
	case StateImporting:
		return "importing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidTransition = errors.New("import workflow: invalid transition")
	ErrEmptyInput        = errors.New("paste the series JSON to import")
)

// Runner runs a single import. *Importer satisfies it.
type Runner interface {
	Import(ctx context.Context, candidate map[string]any, opts Options) Result
}

// Verification is what the operator reviews before confirming. Changes is
// set when the workflow targets an existing series, Preview otherwise.
type Verification struct {
	Changes []seriesjson.Change     `json:"changes,omitempty"`
	Preview *catalog.SeriesListItem `json:"preview,omitempty"`
	Parsed  map[string]any          `json:"-"`
}

// Workflow gates an import behind verification and two explicit
// confirmations:
//
//	idle -> verified -> first-confirmed -> second-confirmed -> importing -> idle
//
// Changing the text before the import starts returns it to idle.
type Workflow struct {
	runner  Runner
	current map[string]any
	now     func() time.Time

	mu     sync.Mutex
	state  State
	text   []byte
	parsed map[string]any
}

// NewWorkflow starts an idle workflow. current is the stored series the
// import will overwrite, or nil to create a new one.
func NewWorkflow(runner Runner, current map[string]any) *Workflow {
	return &Workflow{runner: runner, current: current, now: time.Now}
}

// State returns the current step.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// SetText replaces the pending JSON text and discards any verification or
// confirmation made for the previous text.
func (w *Workflow) SetText(text []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateImporting {
		return fmt.Errorf("%w: text cannot change while importing", ErrInvalidTransition)
	}
	w.text = append(w.text[:0], text...)
	w.parsed = nil
	w.state = StateIdle
	return nil
}

// Verify parses and validates the pending text and produces the review
// material. Verifying again drops earlier confirmations. On error the
// workflow is idle.
func (w *Workflow) Verify() (Verification, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateImporting {
		return Verification{}, fmt.Errorf("%w: import in progress", ErrInvalidTransition)
	}

	w.state = StateIdle
	w.parsed = nil

	if len(w.text) == 0 {
		return Verification{}, ErrEmptyInput
	}
	doc, err := seriesjson.Parse(w.text)
	if err != nil {
		return Verification{}, err
	}
	if v := seriesjson.Validate(doc); !v.Valid {
		return Verification{}, fmt.Errorf("%w: %s", ErrValidation, v.Error)
	}

	out := Verification{Parsed: doc}
	if w.current != nil {
		out.Changes = seriesjson.Diff(w.current, doc)
	} else {
		out.Preview = seriesjson.ExtractPreview(doc, w.now())
	}

	w.parsed = doc
	w.state = StateVerified
	return out, nil
}

// Confirm advances verified to first-confirmed, and first-confirmed to
// second-confirmed.
func (w *Workflow) Confirm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case StateVerified:
		w.state = StateFirstConfirmed
	case StateFirstConfirmed:
		w.state = StateSecondConfirmed
	default:
		return fmt.Errorf("%w: cannot confirm from %s", ErrInvalidTransition, w.state)
	}
	return nil
}

// Import runs the verified payload once both confirmations are given. The
// workflow returns to idle afterwards; the text is kept when the import
// fails so it can be corrected.
func (w *Workflow) Import(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.state != StateSecondConfirmed {
		state := w.state
		w.mu.Unlock()
		return Result{}, fmt.Errorf("%w: cannot import from %s", ErrInvalidTransition, state)
	}
	w.state = StateImporting
	doc := w.parsed
	w.mu.Unlock()

	opts := Options{}
	if w.current != nil {
		opts.UpdateIfExists = true
		opts.SeriesID, _ = w.current["id"].(string)
	}
	result := w.runner.Import(ctx, doc, opts)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateIdle
	w.parsed = nil
	if result.Success {
		w.text = nil
	}
	return result, nil
}
