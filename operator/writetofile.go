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
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowql/enginecore/types"
)

// FileMode selects how write_to_file opens its target path.
type FileMode string

const (
	FileModeAppend    FileMode = "append"
	FileModeOverwrite FileMode = "overwrite"
)

const defaultBufferBytes = 1 << 20 // 1MB

// WriteToFileOptions mirrors the `{ mode, buffer_size_mb, fsync_every }`
// options object of the write_to_file clause.
type WriteToFileOptions struct {
	Mode         FileMode
	BufferSizeMB float64
	FsyncEvery   time.Duration
}

// WriteToFile implements the `write_to_file` sink: NDJSON output,
// buffered until buffer_size_mb or fsync_every elapses. fsync_every is
// driven by a robfig/cron constant-delay schedule rather than a bespoke
// goroutine+timer pair, reusing the same scheduled-job runner the flow TTL
// machinery uses.
type WriteToFile struct {
	base

	mu               sync.Mutex
	file             *os.File
	writer           *bufio.Writer
	bufferedBytes    int
	bufferLimitBytes int
	ticker           *cron.Cron
	lastErr          error
}

func NewWriteToFile(path string, opts WriteToFileOptions) (*WriteToFile, error) {
	flag := os.O_CREATE | os.O_WRONLY
	if opts.Mode == FileModeOverwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, err
	}
	limit := int(opts.BufferSizeMB * 1024 * 1024)
	if limit <= 0 {
		limit = defaultBufferBytes
	}
	w := &WriteToFile{file: f, writer: bufio.NewWriter(f), bufferLimitBytes: limit}
	if opts.FsyncEvery > 0 {
		w.ticker = cron.New()
		w.ticker.Schedule(cron.Every(opts.FsyncEvery), cron.FuncJob(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			_ = w.flushLocked()
		}))
		w.ticker.Start()
	}
	return w, nil
}

func (w *WriteToFile) Push(record *types.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(record)
	if err != nil {
		w.lastErr = err
		return err
	}
	n, err := w.writer.Write(line)
	if err != nil {
		w.lastErr = err
		return err
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		w.lastErr = err
		return err
	}
	w.bufferedBytes += n + 1
	if w.bufferedBytes >= w.bufferLimitBytes {
		return w.flushLocked()
	}
	return nil
}

func (w *WriteToFile) flushLocked() error {
	if err := w.writer.Flush(); err != nil {
		w.lastErr = err
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.lastErr = err
		return err
	}
	w.bufferedBytes = 0
	return nil
}

func (w *WriteToFile) Flush() error {
	w.mu.Lock()
	err := w.flushLocked()
	w.mu.Unlock()
	if err != nil {
		return err
	}
	return w.FlushNext()
}

func (w *WriteToFile) Cancel() {
	w.mu.Lock()
	_ = w.flushLocked()
	if w.ticker != nil {
		w.ticker.Stop()
	}
	_ = w.file.Close()
	w.mu.Unlock()
	w.CancelNext()
}

func (w *WriteToFile) Describe() map[string]types.Value {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := map[string]types.Value{"kind": "write_to_file", "bufferedBytes": float64(w.bufferedBytes)}
	if w.lastErr != nil {
		out["lastError"] = w.lastErr.Error()
	}
	return out
}
