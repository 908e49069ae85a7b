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
	"os"

	"github.com/rs/zerolog"

	"github.com/flowql/enginecore/logger"
)

// engineConfig holds every New(...Option) tunable.
type engineConfig struct {
	log          logger.Logger
	logLevel     logger.Level
	zlog         zerolog.Logger
	sinkPoolSize int
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		log:          logger.NewLogger(logger.INFO, os.Stdout),
		logLevel:     logger.INFO,
		zlog:         zerolog.New(os.Stdout).With().Timestamp().Logger(),
		sinkPoolSize: 4,
	}
}

// Option configures an Engine at construction time.
type Option func(*engineConfig)

// WithLogger installs the line-oriented operational logger used for parse
// diagnostics and lifecycle events.
func WithLogger(l logger.Logger) Option {
	return func(c *engineConfig) { c.log = l }
}

// WithLogLevel sets the operational logger's level.
func WithLogLevel(level logger.Level) Option {
	return func(c *engineConfig) { c.logLevel = level }
}

// WithDiscardLog silences operational logging entirely.
func WithDiscardLog() Option {
	return func(c *engineConfig) { c.log = logger.NewDiscardLogger() }
}

// WithZerologger installs the structured logger `_log` entries are
// mirrored to.
func WithZerologger(l zerolog.Logger) Option {
	return func(c *engineConfig) { c.zlog = l }
}

// WithSinkPoolSize sets how many subscriber flushes FlushStream runs at
// once. Values <= 0 are ignored and the default of 4 stays.
func WithSinkPoolSize(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.sinkPoolSize = n
		}
	}
}
