/*
yatgo: Yet Another Trader in Go
Copyright (C) 2022  Tim Möhlmann

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published
by the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package logging configures the process-wide zerolog logger and
// applies LOG_LEVEL/LOG_IGNORE/LOG_FOCUS component-name filtering via
// per-component loggers built at construction time.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var filter *nameFilter

// Init parses LOG_LEVEL (default "info") into the global zerolog level
// and reads LOG_IGNORE/LOG_FOCUS into the process-wide name filter
// Component applies. It returns a base logger writing JSON to stderr,
// ready to pass to bus.Root.Start and every Com constructor.
func Init() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(envOr("LOG_LEVEL", "info")))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	filter = newNameFilter(os.Getenv("LOG_IGNORE"), os.Getenv("LOG_FOCUS"))

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Component returns base tagged with a "component" field, disabled
// entirely if the name filter excludes it. The decision is made once,
// at construction, since LOG_IGNORE/LOG_FOCUS are read once at process
// start and never change for the life of the process.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	logger := base.With().Str("component", name).Logger()
	if filter != nil && filter.suppresses(name) {
		logger = logger.Level(zerolog.Disabled)
	}
	return logger
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// nameFilter implements ignore/focus wildcard semantics: an ignore
// pattern ending in "*" matches components with that prefix,
// otherwise an exact match; when a focus list is set, a component must
// match at least one focus pattern or it is suppressed.
type nameFilter struct {
	ignore []string
	focus  []string
}

func newNameFilter(ignore, focus string) *nameFilter {
	if ignore == "" && focus == "" {
		return nil
	}
	return &nameFilter{ignore: splitNonEmpty(ignore), focus: splitNonEmpty(focus)}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matches(pattern, name string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == name
}

func (f *nameFilter) suppresses(name string) bool {
	for _, ig := range f.ignore {
		if matches(ig, name) {
			return true
		}
	}

	if len(f.focus) == 0 {
		return false
	}
	for _, fo := range f.focus {
		if matches(fo, name) {
			return false
		}
	}
	return true
}
