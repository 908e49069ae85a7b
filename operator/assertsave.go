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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/flowql/enginecore/types"
)

// DiagnosticPublisher is the subset of the stream manager needed to report
// assertion mismatches to the `_log` stream; satisfied by
// *stream.Manager.
type DiagnosticPublisher interface {
	PublishLog(entry *types.LogEntry)
}

// AssertOrSaveExpected implements the assertion sink. If path does not exist at
// construction, it runs in "save" mode: every pushed record (with keys
// sorted recursively) is accumulated and written as NDJSON on flush. If
// path exists, it runs in "assert" mode: each incoming record is compared,
// key-sorted, against the expected record at the same index, and mismatches
// are published to `_log`.
type AssertOrSaveExpected struct {
	base

	path        string
	saveMode    bool
	expected    []*types.Record
	received    []*types.Record
	index       int
	diagnostics DiagnosticPublisher
}

func NewAssertOrSaveExpected(path string, diagnostics DiagnosticPublisher) (*AssertOrSaveExpected, error) {
	a := &AssertOrSaveExpected{path: path, diagnostics: diagnostics}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.saveMode = true
		return a, nil
	} else if err != nil {
		return nil, err
	}
	expected, err := loadNDJSON(path)
	if err != nil {
		return nil, err
	}
	a.expected = expected
	return a, nil
}

func (a *AssertOrSaveExpected) Push(record *types.Record) error {
	sorted, _ := types.SortedKeysDeep(record).(*types.Record)
	if a.saveMode {
		a.received = append(a.received, sorted)
		return nil
	}
	idx := a.index
	a.index++
	if idx >= len(a.expected) {
		a.reportMismatch(idx, sorted, nil)
		return nil
	}
	want := a.expected[idx]
	if !types.Equal(sorted, want) {
		a.reportMismatch(idx, sorted, want)
	}
	return nil
}

func (a *AssertOrSaveExpected) reportMismatch(index int, got, want *types.Record) {
	if a.diagnostics == nil {
		return
	}
	var gotJSON, wantJSON []byte
	if got != nil {
		gotJSON, _ = json.Marshal(got)
	}
	if want != nil {
		wantJSON, _ = json.Marshal(want)
	}
	a.diagnostics.PublishLog(&types.LogEntry{
		Timestamp: time.Now(),
		Level:     types.LogError,
		Code:      types.ErrExecutionFailed,
		Message:   fmt.Sprintf("assert_or_save_expected mismatch at index %d: got=%s want=%s", index, gotJSON, wantJSON),
	})
}

// Flush writes the accumulated records to path in save mode; assert mode
// only propagates.
func (a *AssertOrSaveExpected) Flush() error {
	if a.saveMode {
		if err := writeNDJSON(a.path, a.received); err != nil {
			return err
		}
	}
	return a.FlushNext()
}

func (a *AssertOrSaveExpected) Cancel() { a.CancelNext() }

func (a *AssertOrSaveExpected) Describe() map[string]types.Value {
	return map[string]types.Value{
		"kind":     "assert_or_save_expected",
		"saveMode": a.saveMode,
		"received": float64(len(a.received)),
		"index":    float64(a.index),
	}
}

func loadNDJSON(path string) ([]*types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []*types.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := types.NewRecord()
		if err := json.Unmarshal(line, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeNDJSON(path string, records []*types.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
