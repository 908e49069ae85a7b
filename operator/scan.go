/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package operator

import (
	"github.com/flowql/enginecore/expr"
	"github.com/flowql/enginecore/types"
)

// ScanAssignment sets one field of a step's accumulated state record.
// Value is evaluated against a context binding the current step's state
// record under the key "state" (see ScanStep.Condition).
type ScanAssignment struct {
	Field string
	Value expr.Node
}

// ScanStep is one named step of a `scan` pattern. The DSL
// compiler that builds these is responsible for rewriting the step's own
// bound identifier (e.g. `s1` in `step s1: s1.count > 3 =>...`) to the
// canonical "state" key used here, so the operator itself never needs to
// know source-level step names — only Name, used for Describe output and
// error messages.
type ScanStep struct {
	Name        string
	Condition   expr.Node
	Assignments []ScanAssignment
	Emit        expr.Node // nil if this step never emits
}

// Scan implements the multi-step pattern operator: per record, steps are
// walked from last to first so a state promoted into
// step i during this tick is never re-evaluated against step i+1 in the
// same tick.
// scanState is one step's accumulated state. matchID is engine metadata —
// it identifies which in-flight match the state belongs to and is not a
// field of the user-visible state record, so spreads of the state never
// carry it into emitted records.
type scanState struct {
	rec     *types.Record
	matchID int64
}

type Scan struct {
	base
	Evaluator   *expr.Evaluator
	Steps       []ScanStep
	state       []*scanState
	nextMatchID int64
}

func NewScan(evaluator *expr.Evaluator, steps []ScanStep) *Scan {
	return &Scan{Evaluator: evaluator, Steps: steps, state: make([]*scanState, len(steps))}
}

// bindContext merges record's fields with the step's accumulated state
// (possibly nil) bound under "state".
func (s *Scan) bindContext(record *types.Record, state *types.Record) *types.Record {
	ctx := types.NewRecord()
	record.Range(func(k string, v types.Value) bool {
		ctx.Set(k, v)
		return true
	})
	// Store an untyped nil rather than a typed-nil *types.Record: a
	// *types.Record(nil) boxed into a types.Value interface is a non-nil
	// interface, which would make "state == null" and is_null(state) both
	// fail the no-prior-match case this field exists to express.
	if state == nil {
		ctx.Set("state", nil)
	} else {
		ctx.Set("state", state)
	}
	return ctx
}

func (s *Scan) evalCondition(i int, state *types.Record, record *types.Record) (bool, error) {
	v, err := s.Evaluator.Eval(s.Steps[i].Condition, s.bindContext(record, state))
	if err != nil {
		return false, err
	}
	return types.Truthy(v), nil
}

// runStep applies a step's assignments to st and, if the step has an emit
// expression, evaluates and emits it.
func (s *Scan) runStep(i int, st *types.Record, record *types.Record) error {
	for _, a := range s.Steps[i].Assignments {
		v, err := s.Evaluator.Eval(a.Value, s.bindContext(record, st))
		if err != nil {
			return err
		}
		st.Set(a.Field, v)
	}
	if s.Steps[i].Emit != nil {
		out, err := s.Evaluator.Eval(s.Steps[i].Emit, s.bindContext(record, st))
		if err != nil {
			return err
		}
		if rec, ok := out.(*types.Record); ok {
			if err := s.Emit(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scan) Push(record *types.Record) error {
	for i := len(s.Steps) - 1; i >= 0; i-- {
		if i > 0 {
			if prior := s.state[i-1]; prior != nil {
				ok, err := s.evalCondition(i, prior.rec, record)
				if err != nil {
					return err
				}
				if ok {
					s.state[i-1] = nil
					if err := s.runStep(i, prior.rec, record); err != nil {
						return err
					}
					s.state[i] = prior
					continue
				}
			}
		}
		if i == 0 {
			st := s.state[0]
			var stRec *types.Record
			if st != nil {
				stRec = st.rec
			}
			ok, err := s.evalCondition(0, stRec, record)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if st == nil {
				s.nextMatchID++
				st = &scanState{rec: types.NewRecord(), matchID: s.nextMatchID}
			}
			if err := s.runStep(0, st.rec, record); err != nil {
				return err
			}
			s.state[0] = st
		} else if s.state[i] != nil {
			ok, err := s.evalCondition(i, s.state[i].rec, record)
			if err != nil {
				return err
			}
			if ok {
				if err := s.runStep(i, s.state[i].rec, record); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Flush does not emit retained partial matches; it only
// propagates downstream.
func (s *Scan) Flush() error { return s.FlushNext() }

func (s *Scan) Cancel() {
	for i := range s.state {
		s.state[i] = nil
	}
	s.CancelNext()
}

// Describe exposes the live per-step state table — a supplemented
// introspection surface (none of the steps' values are copied deeply; this
// is diagnostic only).
func (s *Scan) Describe() map[string]types.Value {
	out := map[string]types.Value{"kind": "scan"}
	table := types.NewRecord()
	for i, step := range s.Steps {
		if s.state[i] != nil {
			entry := types.NewRecord()
			entry.Set("matchId", float64(s.state[i].matchID))
			entry.Set("state", s.state[i].rec)
			table.Set(step.Name, entry)
		} else {
			table.Set(step.Name, nil)
		}
	}
	out["steps"] = table
	out["nextMatchId"] = float64(s.nextMatchID + 1)
	return out
}
