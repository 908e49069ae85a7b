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

// Package stream implements the stream manager and the flow lifecycle /
// query engine: named streams, subscribers, flows, lookups, and the
// control-plane and data-plane statement surface.
package stream

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/flowql/enginecore/operator"
	"github.com/flowql/enginecore/types"
)

// LogStreamName is the implicitly-created system stream diagnostics are
// published to.
const LogStreamName = "_log"

// SubscriberKind distinguishes a flow's pipeline head from a bare
// control-plane subscription callback.
type SubscriberKind string

const (
	SubscriberPipeline SubscriberKind = "pipeline"
	SubscriberSink     SubscriberKind = "sink"
)

// Subscriber is one registered receiver of a Stream's records.
type Subscriber struct {
	ID       string
	Stream   string
	Kind     SubscriberKind
	Pipeline *operator.Pipeline
	Callback func(*types.Record) error
}

func (s *Subscriber) push(record *types.Record) error {
	if s.Pipeline != nil {
		return s.Pipeline.Push(record)
	}
	if s.Callback != nil {
		return s.Callback(record)
	}
	return nil
}

func (s *Subscriber) flush() error {
	if s.Pipeline != nil {
		return s.Pipeline.Flush()
	}
	return nil
}

// Stream is a named, ordered in-memory record queue with zero or more
// subscribers. The queue itself is not retained past delivery — persistent
// storage of stream contents is out of scope here, so Manager delivers
// synchronously to every subscriber rather than buffering a backlog.
type Stream struct {
	Name        string
	subscribers []*Subscriber
	pending     int64
	flushing    bool
}

// DescribeYAML renders the stream's introspection state as YAML, a
// human-readable supplement to the JSON control-plane envelope.
func (s *Stream) DescribeYAML() (string, error) {
	view := struct {
		Name        string `yaml:"name"`
		Subscribers int    `yaml:"subscribers"`
		Pending     int64  `yaml:"pending"`
	}{Name: s.Name, Subscribers: len(s.subscribers), Pending: s.pending}
	out, err := yaml.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Manager owns every named Stream. It satisfies
// operator.StreamInserter (insert_into sinks) and operator.DiagnosticPublisher
// (assert_or_save_expected's _log reporting).
type Manager struct {
	mu      sync.Mutex
	streams map[string]*Stream
	nextSub int64

	log          zerolog.Logger
	sinkPoolSize int
	logSeq       int64
}

// NewManager returns an empty Manager; the `_log` stream is created lazily
// on first diagnostic. sinkPoolSize bounds how many subscriber flushes
// FlushStream runs concurrently; 0 means unbounded.
func NewManager(log zerolog.Logger, sinkPoolSize int) *Manager {
	return &Manager{streams: make(map[string]*Stream), log: log, sinkPoolSize: sinkPoolSize}
}

func (m *Manager) CreateStream(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.streams[name]; exists {
		return types.NewEngineError(types.ErrStreamAlreadyExists, "stream %q already exists", name)
	}
	m.streams[name] = &Stream{Name: name}
	return nil
}

func (m *Manager) DeleteStream(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.streams[name]; !exists {
		return types.NewEngineError(types.ErrStreamNotFound, "stream %q not found", name)
	}
	delete(m.streams, name)
	return nil
}

func (m *Manager) StreamExists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.streams[name]
	return exists
}

// getOrCreate returns the named stream, implicitly creating it — used for
// `_log` and nowhere else; all user-facing streams must be
// created explicitly via `create stream`.
func (m *Manager) getOrCreate(name string) *Stream {
	s, exists := m.streams[name]
	if !exists {
		s = &Stream{Name: name}
		m.streams[name] = s
	}
	return s
}

// InsertIntoStream pushes one record to every subscriber of name in
// declaration order. Batches of records go through InsertManyIntoStream.
func (m *Manager) InsertIntoStream(name string, record *types.Record) error {
	m.mu.Lock()
	s, exists := m.streams[name]
	if !exists {
		m.mu.Unlock()
		return types.NewEngineError(types.ErrStreamNotFound, "stream %q not found", name)
	}
	subs := make([]*Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.pending += int64(len(subs))
	m.mu.Unlock()

	var firstErr error
	for _, sub := range subs {
		if err := sub.push(record); err != nil {
			m.PublishLog(&types.LogEntry{
				Timestamp: time.Now(),
				Level:     types.LogError,
				Code:      types.ErrFunctionExecution,
				Message:   fmt.Sprintf("subscriber %s on stream %q: %v", sub.ID, name, err),
			})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	m.mu.Lock()
	s.pending -= int64(len(subs))
	m.mu.Unlock()
	return firstErr
}

// InsertManyIntoStream inserts a batch, delivering each record in order.
func (m *Manager) InsertManyIntoStream(name string, records []*types.Record) error {
	for _, r := range records {
		if err := m.InsertIntoStream(name, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) SubscribeToStream(name string, kind SubscriberKind, pipeline *operator.Pipeline, callback func(*types.Record) error) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, exists := m.streams[name]
	if !exists {
		return "", types.NewEngineError(types.ErrStreamNotFound, "stream %q not found", name)
	}
	m.nextSub++
	id := fmt.Sprintf("sub-%d", m.nextSub)
	s.subscribers = append(s.subscribers, &Subscriber{ID: id, Stream: name, Kind: kind, Pipeline: pipeline, Callback: callback})
	return id, nil
}

func (m *Manager) UnsubscribeFromStream(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.streams {
		for i, sub := range s.subscribers {
			if sub.ID == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return nil
			}
		}
	}
	return types.NewEngineError(types.ErrCommandFailed, "subscription %q not found", id)
}

// FlushStream flushes every subscriber pipeline of name, fanning the
// per-subscriber flush out through an errgroup.Group and resolving only
// once every pending operation has finished.
func (m *Manager) FlushStream(name string) error {
	m.mu.Lock()
	s, exists := m.streams[name]
	if !exists {
		m.mu.Unlock()
		return types.NewEngineError(types.ErrStreamNotFound, "stream %q not found", name)
	}
	subs := make([]*Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	m.mu.Unlock()

	var g errgroup.Group
	if m.sinkPoolSize > 0 {
		g.SetLimit(m.sinkPoolSize)
	}
	for _, sub := range subs {
		sub := sub
		g.Go(func() error { return sub.flush() })
	}
	return g.Wait()
}

// ListStreamNames returns every stream name, sorted, for `list streams`.
func (m *Manager) ListStreamNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.streams))
	for name := range m.streams {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ListSubscriptions returns every subscriber across every stream, sorted by
// id, for `list subscriptions`.
func (m *Manager) ListSubscriptions() []*Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Subscriber
	for _, s := range m.streams {
		out = append(out, s.subscribers...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// StreamInfo returns the stream named name (for `info name`) or nil.
func (m *Manager) StreamInfo(name string) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[name]
}

// PublishLog publishes a diagnostic entry to `_log`, creating the stream
// on first use, and additionally routes it through the structured zerolog
// logger — the JSON-shaped logging surface that sits alongside the
// line-oriented logger.Logger used for engine-internal operational
// logging.
func (m *Manager) PublishLog(entry *types.LogEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("log-%d", atomic.AddInt64(&m.logSeq, 1))
	}
	var ev *zerolog.Event
	switch entry.Level {
	case types.LogError:
		ev = m.log.Error()
	case types.LogWarn:
		ev = m.log.Warn()
	default:
		ev = m.log.Info()
	}
	ev.Str("id", entry.ID).Str("code", string(entry.Code)).Str("query", entry.Query).Msg(entry.Message)

	m.mu.Lock()
	s := m.getOrCreate(LogStreamName)
	subs := make([]*Subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	m.mu.Unlock()
	rec := entry.ToRecord()
	for _, sub := range subs {
		_ = sub.push(rec)
	}
}
