// Package transform turns raw result rows into canonical contests,
// candidates and results. States register an ordered list of named
// transforms; runs are idempotent because every forward step is paired
// with a reverse step that clears its own output first.
package transform

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"openelex-backend/internal/pipeline"
	"openelex-backend/lib/telemetry"
)

var tracer = telemetry.Tracer("internal/transform")

// Func is one direction of a transform.
type Func func(ctx context.Context, pctx *pipeline.Context, state string) error

// Validator checks a property of transformed data and returns an error
// describing the violation, or nil.
type Validator struct {
	Name string
	Run  Func
}

// Transform is one named step in a state's canonicalization sequence.
type Transform struct {
	Name    string
	Run     Func
	Reverse Func
	// AutoReverse runs Reverse before Run so re-running a transform
	// replaces its previous output instead of duplicating it.
	AutoReverse bool
	// Raw marks transforms that rewrite raw result rows in place
	// (source fixups) rather than producing canonical entities.
	Raw        bool
	Validators []Validator
}

var (
	registryMu sync.Mutex
	registry   = map[string][]Transform{}
)

// Register appends a transform to a state's ordered sequence. A
// duplicate name within a state is a programming error.
func Register(state string, t Transform) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, existing := range registry[state] {
		if existing.Name == t.Name {
			panic(fmt.Sprintf("transform %q registered twice for state %q", t.Name, state))
		}
	}
	registry[state] = append(registry[state], t)
}

// ForState returns a state's transforms in registration order.
func ForState(state string) []Transform {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]Transform, len(registry[state]))
	copy(out, registry[state])
	return out
}

// Get resolves one transform by name.
func Get(state, name string) (Transform, bool) {
	for _, t := range ForState(state) {
		if t.Name == name {
			return t, true
		}
	}
	return Transform{}, false
}

// Selection narrows which transforms a run covers. Include and Exclude
// are mutually exclusive.
type Selection struct {
	Include []string
	Exclude []string
}

func (s Selection) validate(state string) error {
	if len(s.Include) > 0 && len(s.Exclude) > 0 {
		return fmt.Errorf("include and exclude cannot be combined")
	}
	for _, name := range append(append([]string{}, s.Include...), s.Exclude...) {
		if _, ok := Get(state, name); !ok {
			return fmt.Errorf("unknown transform %q for state %q", name, state)
		}
	}
	return nil
}

func (s Selection) covers(name string) bool {
	if len(s.Include) > 0 {
		for _, n := range s.Include {
			if n == name {
				return true
			}
		}
		return false
	}
	for _, n := range s.Exclude {
		if n == name {
			return false
		}
	}
	return true
}

// Run executes a state's selected transforms in registration order.
func Run(ctx context.Context, pctx *pipeline.Context, state string, sel Selection) error {
	ctx, span := tracer.Start(ctx, "transform.Run",
		trace.WithAttributes(attribute.String("state", state)))
	defer span.End()

	if err := sel.validate(state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	transforms := ForState(state)
	if len(transforms) == 0 {
		return fmt.Errorf("no transforms registered for state %q", state)
	}
	for _, t := range transforms {
		if !sel.covers(t.Name) {
			continue
		}
		if err := runOne(ctx, pctx, state, t); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("transform %q: %w", t.Name, err)
		}
	}
	return nil
}

// Reverse undoes a state's selected transforms, newest registration
// last, for transforms that define a reverse step.
func Reverse(ctx context.Context, pctx *pipeline.Context, state string, sel Selection) error {
	ctx, span := tracer.Start(ctx, "transform.Reverse",
		trace.WithAttributes(attribute.String("state", state)))
	defer span.End()

	if err := sel.validate(state); err != nil {
		return err
	}
	transforms := ForState(state)
	for i := len(transforms) - 1; i >= 0; i-- {
		t := transforms[i]
		if !sel.covers(t.Name) || t.Reverse == nil {
			continue
		}
		pctx.Log.Info("reversing transform", "state", state, "name", t.Name)
		if err := t.Reverse(ctx, pctx, state); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("reverse %q: %w", t.Name, err)
		}
	}
	return nil
}

func runOne(ctx context.Context, pctx *pipeline.Context, state string, t Transform) error {
	ctx, span := tracer.Start(ctx, "transform."+t.Name)
	defer span.End()

	if t.AutoReverse && t.Reverse != nil {
		pctx.Log.Info("reversing transform", "state", state, "name", t.Name)
		if err := t.Reverse(ctx, pctx, state); err != nil {
			return err
		}
	}
	pctx.Log.Info("running transform", "state", state, "name", t.Name)
	return t.Run(ctx, pctx, state)
}
