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

package types

import (
	"fmt"
	"time"
)

// ErrorCode enumerates the fixed set of control-plane error codes.
type ErrorCode string

const (
	ErrStreamNotFound      ErrorCode = "STREAM_NOT_FOUND"
	ErrStreamAlreadyExists ErrorCode = "STREAM_ALREADY_EXISTS"
	ErrFlowNotFound        ErrorCode = "FLOW_NOT_FOUND"
	ErrFlowAlreadyExists   ErrorCode = "FLOW_ALREADY_EXISTS"
	ErrSyntaxError         ErrorCode = "SYNTAX_ERROR"
	ErrInvalidQuery        ErrorCode = "INVALID_QUERY"
	ErrCommandFailed       ErrorCode = "COMMAND_FAILED"
	ErrExecutionFailed     ErrorCode = "EXECUTION_FAILED"
	ErrFunctionNotFound    ErrorCode = "FUNCTION_NOT_FOUND"
	ErrFunctionExecution   ErrorCode = "FUNCTION_EXECUTION_ERROR"
	ErrLookupNotFound      ErrorCode = "LOOKUP_NOT_FOUND"
	ErrLookupNameConflict  ErrorCode = "LOOKUP_NAME_CONFLICT"
	ErrLookupValueError    ErrorCode = "LOOKUP_VALUE_ERROR"
)

// EngineError pairs an ErrorCode with a human-readable message, and is the
// `error` field of a control-plane Response.
type EngineError struct {
	Code    ErrorCode
	Message string
}

func (e *EngineError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// NewEngineError constructs an *EngineError.
func NewEngineError(code ErrorCode, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Response is the uniform control-plane response envelope.
type Response struct {
	Success bool         `json:"success"`
	Type    string       `json:"type,omitempty"`
	Message string       `json:"message"`
	Result  interface{}  `json:"result,omitempty"`
	Error   *EngineError `json:"error,omitempty"`
}

// OK builds a successful response.
func OK(typ, message string, result interface{}) *Response {
	return &Response{Success: true, Type: typ, Message: message, Result: result}
}

// Fail builds a failed response carrying an EngineError.
func Fail(code ErrorCode, format string, args ...interface{}) *Response {
	err := NewEngineError(code, format, args...)
	return &Response{Success: false, Message: err.Message, Error: err}
}

// LogLevel mirrors the three severities published to the `_log` stream.
type LogLevel string

const (
	LogError LogLevel = "error"
	LogWarn  LogLevel = "warning"
	LogInfo  LogLevel = "info"
)

// LogEntry is the shape of a record published to `_log`.
type LogEntry struct {
	ID        string    `json:"_id"`
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level"`
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Query     string    `json:"query,omitempty"`
}

// ToRecord renders the log entry as a Record so it can flow through `_log`
// like any other stream record.
func (e *LogEntry) ToRecord() *Record {
	r := NewRecord()
	r.Set("_id", e.ID)
	r.Set("timestamp", e.Timestamp.Format(time.RFC3339Nano))
	r.Set("level", string(e.Level))
	r.Set("code", string(e.Code))
	r.Set("message", e.Message)
	if e.Query != "" {
		r.Set("query", e.Query)
	}
	return r
}
