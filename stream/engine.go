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

package stream

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowql/enginecore/aggregator"
	"github.com/flowql/enginecore/dsl"
	"github.com/flowql/enginecore/functions"
	"github.com/flowql/enginecore/logger"
	"github.com/flowql/enginecore/operator"
	"github.com/flowql/enginecore/types"
)

// Flow is a running query: a subscription of a compiled pipeline to its
// source stream, plus the bookkeeping Engine needs to tear it down.
type Flow struct {
	Name       string
	Source     string
	Sinks      []string
	Collect    *operator.Collector
	subID      string
	ttlEntryID cron.EntryID
	createdAt  time.Time
}

// Lookup is a named, versioned constant value consulted during expression
// evaluation via the `lookup(name)` scalar function.
type Lookup struct {
	Name    string
	Value   types.Value
	Version int
}

// Engine is the top-level query engine: it owns the Stream
// Manager, the scalar-function and aggregator registries, the DSL
// transpiler, the flow and lookup tables, and a cron scheduler for flow TTL
// expiry.
type Engine struct {
	mu sync.Mutex

	Streams     *Manager
	Functions   *functions.Registry
	Aggregators *aggregator.Registry
	Transpiler  *Transpiler

	flows   map[string]*Flow
	lookups map[string]*Lookup

	cron *cron.Cron
	log  logger.Logger
	cfg  *engineConfig

	// onFlowEvent, if set, is notified of every flow create/delete — the
	// hook a transport layer (outside this core's scope) would use to
	// mirror flow lifecycle into its own bookkeeping.
	onFlowEvent func(name, event string)
}

// New constructs an Engine with its own, non-shared registries and stream
// manager; nothing an Engine owns is shared with any other instance.
func New(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.log.SetLevel(cfg.logLevel)

	funcs := functions.NewRegistry()
	aggs := aggregator.NewRegistry()
	mgr := NewManager(cfg.zlog, cfg.sinkPoolSize)

	e := &Engine{
		Streams:     mgr,
		Functions:   funcs,
		Aggregators: aggs,
		Transpiler:  NewTranspiler(funcs, aggs, mgr),
		flows:       make(map[string]*Flow),
		lookups:     make(map[string]*Lookup),
		cron:        cron.New(),
		log:         cfg.log,
		cfg:         cfg,
	}
	e.registerLookupFunction()
	e.cron.Start()
	return e
}

// OnFlowEvent installs a callback notified on every flow lifecycle
// transition ("created", "deleted", "expired").
func (e *Engine) OnFlowEvent(fn func(name, event string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFlowEvent = fn
}

func (e *Engine) fireFlowEvent(name, event string) {
	e.mu.Lock()
	cb := e.onFlowEvent
	e.mu.Unlock()
	if cb != nil {
		cb(name, event)
	}
}

// Close stops the TTL scheduler. It does not tear down running flows —
// callers that want a clean shutdown should DeleteFlow each one first.
func (e *Engine) Close() {
	<-e.cron.Stop().Done()
}

// Execute parses text as a dsl.Program and runs every statement in order,
// returning the last statement's Response (single-envelope
// control surface). A program with no statements returns a no-op success.
func (e *Engine) Execute(text string) *types.Response {
	prog, err := dsl.ParseProgram(text)
	if err != nil {
		return types.Fail(types.ErrSyntaxError, "%v", err)
	}
	resp := types.OK("noop", "empty program", nil)
	for _, stmt := range prog.Statements {
		resp = e.ExecuteStatement(stmt)
		if !resp.Success {
			return resp
		}
	}
	return resp
}

// ExecuteStatement dispatches one already-parsed dsl.Statement
// to the matching control-plane or data-plane operation.
func (e *Engine) ExecuteStatement(stmt dsl.Statement) *types.Response {
	switch s := stmt.(type) {
	case *dsl.CreateStreamStmt:
		return e.createStream(s)
	case *dsl.CreateFlowStmt:
		return e.createFlow(s)
	case *dsl.CreateLookupStmt:
		return e.createLookup(s)
	case *dsl.DeleteStmt:
		return e.deleteEntity(s)
	case *dsl.InsertStmt:
		return e.insert(s)
	case *dsl.FlushStmt:
		return e.flush(s)
	case *dsl.ListStmt:
		return e.list(s)
	case *dsl.InfoStmt:
		return e.info(s)
	case *dsl.SubscribeStmt:
		return e.subscribe(s)
	case *dsl.UnsubscribeStmt:
		return e.unsubscribe(s)
	case *dsl.PipelineQueryStmt:
		return e.runAdHocQuery(s)
	}
	return types.Fail(types.ErrInvalidQuery, "unrecognized statement %T", stmt)
}

func (e *Engine) createStream(s *dsl.CreateStreamStmt) *types.Response {
	if s.Existence == dsl.CreateIfNotExists && e.Streams.StreamExists(s.Name) {
		return types.OK("stream", fmt.Sprintf("stream %q already exists", s.Name), s.Name)
	}
	if s.Existence == dsl.CreateOrReplace && e.Streams.StreamExists(s.Name) {
		_ = e.Streams.DeleteStream(s.Name)
	}
	if err := e.Streams.CreateStream(s.Name); err != nil {
		return e.failErr(err)
	}
	return types.OK("stream", fmt.Sprintf("stream %q created", s.Name), s.Name)
}

func (e *Engine) createFlow(s *dsl.CreateFlowStmt) *types.Response {
	e.mu.Lock()
	_, exists := e.flows[s.Name]
	e.mu.Unlock()
	if exists {
		switch s.Existence {
		case dsl.CreateIfNotExists:
			return types.OK("flow", fmt.Sprintf("flow %q already exists", s.Name), s.Name)
		case dsl.CreateOrReplace:
			if resp := e.deleteFlowByName(s.Name); !resp.Success {
				return resp
			}
		default:
			return types.Fail(types.ErrFlowAlreadyExists, "flow %q already exists", s.Name)
		}
	}

	if !e.Streams.StreamExists(s.Query.Source) {
		return types.Fail(types.ErrStreamNotFound, "source stream %q not found", s.Query.Source)
	}
	compiled, err := e.Transpiler.Compile(s.Query)
	if err != nil {
		return types.Fail(types.ErrInvalidQuery, "%v", err)
	}
	for _, sink := range compiled.Sinks {
		if !e.Streams.StreamExists(sink) {
			return types.Fail(types.ErrStreamNotFound, "sink stream %q not found", sink)
		}
	}

	subID, err := e.Streams.SubscribeToStream(s.Query.Source, SubscriberPipeline, compiled.Pipeline, nil)
	if err != nil {
		return e.failErr(err)
	}

	flow := &Flow{
		Name:      s.Name,
		Source:    s.Query.Source,
		Sinks:     compiled.Sinks,
		Collect:   compiled.Collect,
		subID:     subID,
		createdAt: time.Now(),
	}

	if s.TTL != nil {
		ttl, terr := e.Transpiler.constDuration(s.TTL)
		if terr != nil {
			_ = e.Streams.UnsubscribeFromStream(subID)
			return types.Fail(types.ErrInvalidQuery, "invalid ttl: %v", terr)
		}
		flow.ttlEntryID = e.scheduleExpiry(s.Name, ttl)
	}

	e.mu.Lock()
	e.flows[s.Name] = flow
	e.mu.Unlock()
	e.log.Named(s.Name).Info("flow created, source=%q sinks=%v", flow.Source, flow.Sinks)
	e.fireFlowEvent(s.Name, "created")
	return types.OK("flow", fmt.Sprintf("flow %q created", s.Name), s.Name)
}

// scheduleExpiry registers a one-shot cron job that deletes the named flow
// after ttl elapses. robfig/cron has no native one-shot schedule, so the
// job removes its own entry the moment it fires — TTL is
// always a single expiry, never a recurring sweep.
func (e *Engine) scheduleExpiry(name string, ttl time.Duration) cron.EntryID {
	spec := fmt.Sprintf("@every %s", ttl.String())
	var id cron.EntryID
	id, _ = e.cron.AddFunc(spec, func() {
		e.cron.Remove(id)
		e.mu.Lock()
		flow, exists := e.flows[name]
		if exists {
			delete(e.flows, name)
		}
		e.mu.Unlock()
		if !exists {
			return
		}
		_ = e.Streams.UnsubscribeFromStream(flow.subID)
		e.log.Named(name).Info("flow ttl expired after %s", ttl)
		e.fireFlowEvent(name, "expired")
	})
	return id
}

func (e *Engine) createLookup(s *dsl.CreateLookupStmt) *types.Response {
	e.mu.Lock()
	existing, exists := e.lookups[s.Name]
	e.mu.Unlock()
	if exists {
		switch s.Existence {
		case dsl.CreateIfNotExists:
			return types.OK("lookup", fmt.Sprintf("lookup %q already exists", s.Name), s.Name)
		case dsl.CreateOrReplace:
		// fall through and overwrite, bumping the version below
		default:
			return types.Fail(types.ErrLookupNameConflict, "lookup %q already exists", s.Name)
		}
	}
	val, err := e.Transpiler.Evaluator.Eval(s.Value, nil)
	if err != nil {
		return types.Fail(types.ErrLookupValueError, "%v", err)
	}
	version := 1
	if existing != nil {
		version = existing.Version + 1
	}
	e.mu.Lock()
	e.lookups[s.Name] = &Lookup{Name: s.Name, Value: val, Version: version}
	e.mu.Unlock()
	return types.OK("lookup", fmt.Sprintf("lookup %q created", s.Name), s.Name)
}

func (e *Engine) deleteEntity(s *dsl.DeleteStmt) *types.Response {
	switch s.Kind {
	case dsl.DeleteStream:
		if err := e.Streams.DeleteStream(s.Name); err != nil {
			return e.failErr(err)
		}
		return types.OK("stream", fmt.Sprintf("stream %q deleted", s.Name), s.Name)
	case dsl.DeleteFlow:
		return e.deleteFlowByName(s.Name)
	case dsl.DeleteLookup:
		e.mu.Lock()
		_, exists := e.lookups[s.Name]
		if exists {
			delete(e.lookups, s.Name)
		}
		e.mu.Unlock()
		if !exists {
			return types.Fail(types.ErrLookupNotFound, "lookup %q not found", s.Name)
		}
		return types.OK("lookup", fmt.Sprintf("lookup %q deleted", s.Name), s.Name)
	}
	return types.Fail(types.ErrInvalidQuery, "unknown delete kind %q", s.Kind)
}

func (e *Engine) deleteFlowByName(name string) *types.Response {
	e.mu.Lock()
	flow, exists := e.flows[name]
	if exists {
		delete(e.flows, name)
	}
	e.mu.Unlock()
	if !exists {
		return types.Fail(types.ErrFlowNotFound, "flow %q not found", name)
	}
	if flow.ttlEntryID != 0 {
		e.cron.Remove(flow.ttlEntryID)
	}
	_ = e.Streams.UnsubscribeFromStream(flow.subID)
	e.log.Named(name).Info("flow deleted")
	e.fireFlowEvent(name, "deleted")
	return types.OK("flow", fmt.Sprintf("flow %q deleted", name), name)
}

func (e *Engine) insert(s *dsl.InsertStmt) *types.Response {
	val, err := e.Transpiler.Evaluator.Eval(s.Value, nil)
	if err != nil {
		return types.Fail(types.ErrInvalidQuery, "%v", err)
	}
	record, ok := val.(*types.Record)
	if !ok {
		return types.Fail(types.ErrInvalidQuery, "insert value must evaluate to a JSON object")
	}
	if err := e.Streams.InsertIntoStream(s.Target, record); err != nil {
		return e.failErr(err)
	}
	return types.OK("insert", fmt.Sprintf("inserted into %q", s.Target), nil)
}

func (e *Engine) flush(s *dsl.FlushStmt) *types.Response {
	if err := e.Streams.FlushStream(s.Name); err != nil {
		return e.failErr(err)
	}
	return types.OK("flush", fmt.Sprintf("stream %q flushed", s.Name), nil)
}

func (e *Engine) list(s *dsl.ListStmt) *types.Response {
	switch s.Kind {
	case dsl.ListStreams:
		return types.OK("list", "streams", e.Streams.ListStreamNames())
	case dsl.ListFlows:
		e.mu.Lock()
		names := make([]string, 0, len(e.flows))
		for n := range e.flows {
			names = append(names, n)
		}
		e.mu.Unlock()
		sort.Strings(names)
		return types.OK("list", "flows", names)
	case dsl.ListLookups:
		e.mu.Lock()
		names := make([]string, 0, len(e.lookups))
		for n := range e.lookups {
			names = append(names, n)
		}
		e.mu.Unlock()
		sort.Strings(names)
		return types.OK("list", "lookups", names)
	case dsl.ListSubscriptions:
		subs := e.Streams.ListSubscriptions()
		ids := make([]string, len(subs))
		for i, s := range subs {
			ids[i] = s.ID
		}
		return types.OK("list", "subscriptions", ids)
	}
	return types.Fail(types.ErrInvalidQuery, "unknown list kind %q", s.Kind)
}

func (e *Engine) info(s *dsl.InfoStmt) *types.Response {
	if s.Name == "" {
		return types.OK("info", "engine summary", map[string]types.Value{
			"streams": len(e.Streams.ListStreamNames()),
			"flows":   len(e.flows),
			"lookups": len(e.lookups),
		})
	}
	e.mu.Lock()
	flow, isFlow := e.flows[s.Name]
	e.mu.Unlock()
	if isFlow {
		info := map[string]types.Value{
			"name":        flow.Name,
			"source":      flow.Source,
			"sinks":       flow.Sinks,
			"age_seconds": time.Since(flow.createdAt).Seconds(),
		}
		if flow.Collect != nil {
			info["collected"] = len(flow.Collect.Records())
		}
		return types.OK("flow", "flow info", info)
	}
	if stream := e.Streams.StreamInfo(s.Name); stream != nil {
		yamlText, err := stream.DescribeYAML()
		if err != nil {
			return types.Fail(types.ErrCommandFailed, "%v", err)
		}
		return types.OK("stream", "stream info", yamlText)
	}
	e.mu.Lock()
	lookup, isLookup := e.lookups[s.Name]
	e.mu.Unlock()
	if isLookup {
		return types.OK("lookup", "lookup info", map[string]types.Value{
			"name": lookup.Name, "version": lookup.Version, "value": lookup.Value,
		})
	}
	return types.Fail(types.ErrCommandFailed, "no stream, flow or lookup named %q", s.Name)
}

func (e *Engine) subscribe(s *dsl.SubscribeStmt) *types.Response {
	id, err := e.Streams.SubscribeToStream(s.Name, SubscriberSink, nil, func(*types.Record) error { return nil })
	if err != nil {
		return e.failErr(err)
	}
	return types.OK("subscribe", "subscribed", id)
}

func (e *Engine) unsubscribe(s *dsl.UnsubscribeStmt) *types.Response {
	id, err := e.Transpiler.Evaluator.Eval(s.ID, nil)
	if err != nil {
		return types.Fail(types.ErrInvalidQuery, "%v", err)
	}
	idStr, ok := id.(string)
	if !ok {
		return types.Fail(types.ErrInvalidQuery, "unsubscribe id must be a string")
	}
	if err := e.Streams.UnsubscribeFromStream(idStr); err != nil {
		return e.failErr(err)
	}
	return types.OK("unsubscribe", "unsubscribed", idStr)
}

// runAdHocQuery compiles and runs a bare pipeline query (no `create flow`
// wrapper), collecting results synchronously — the one-shot query surface
// the grammar allows alongside the named, persistent `create flow` form.
func (e *Engine) runAdHocQuery(s *dsl.PipelineQueryStmt) *types.Response {
	compiled, err := e.Transpiler.Compile(s)
	if err != nil {
		return types.Fail(types.ErrInvalidQuery, "%v", err)
	}
	for _, sink := range compiled.Sinks {
		if !e.Streams.StreamExists(sink) {
			return types.Fail(types.ErrStreamNotFound, "sink stream %q not found", sink)
		}
	}
	if compiled.Collect == nil {
		return types.Fail(types.ErrInvalidQuery, "ad-hoc query must end in `collect` to return a result")
	}
	id, err := e.Streams.SubscribeToStream(s.Source, SubscriberPipeline, compiled.Pipeline, nil)
	if err != nil {
		return e.failErr(err)
	}
	defer e.Streams.UnsubscribeFromStream(id)
	if err := e.Streams.FlushStream(s.Source); err != nil {
		return e.failErr(err)
	}
	return types.OK("query", "ad-hoc query result", compiled.Collect.Records())
}

func (e *Engine) failErr(err error) *types.Response {
	if ee, ok := err.(*types.EngineError); ok {
		return &types.Response{Success: false, Message: ee.Message, Error: ee}
	}
	return types.Fail(types.ErrCommandFailed, "%v", err)
}
