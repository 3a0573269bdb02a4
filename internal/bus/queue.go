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

package bus

import (
	"errors"
	"sync"
	"time"
)

// DefaultQueueSize is the default bound applied to every Queue created
// without an explicit size.
const DefaultQueueSize = 1000

// ErrQueueTimeout is returned by Queue.Get when no item became
// available within the requested timeout.
var ErrQueueTimeout = errors.New("bus: queue get timed out")

// Queue is a FIFO bounded to at most maxSize items. Put never blocks:
// on overflow the oldest item is dropped to make room for the newest
// (drop-head policy). Get blocks until an item is available or the
// timeout elapses.
type Queue[T any] struct {
	mu       sync.Mutex
	store    []T
	maxSize  int
	notEmpty chan struct{}
}

// NewQueue creates a Queue bounded to maxSize items. A maxSize of 0
// uses DefaultQueueSize.
func NewQueue[T any](maxSize int) *Queue[T] {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &Queue[T]{
		maxSize:  maxSize,
		notEmpty: make(chan struct{}, 1),
	}
}

// Put appends item to the queue, dropping the oldest entry first if
// the queue is already at capacity.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.store) >= q.maxSize {
		q.store = q.store[1:]
	}
	q.store = append(q.store, item)

	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}

// Get blocks until an item is available or timeout elapses, whichever
// comes first. A timeout of 0 returns immediately if the queue is
// empty.
func (q *Queue[T]) Get(timeout time.Duration) (T, error) {
	deadline := time.Now().Add(timeout)

	for {
		q.mu.Lock()
		if len(q.store) > 0 {
			item := q.store[0]
			q.store = q.store[1:]
			if len(q.store) > 0 {
				select {
				case q.notEmpty <- struct{}{}:
				default:
				}
			}
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, ErrQueueTimeout
		}

		select {
		case <-q.notEmpty:
			// Woken up; loop back and re-check under the lock, since
			// another getter may have raced us to the item.
		case <-time.After(remaining):
			var zero T
			return zero, ErrQueueTimeout
		}
	}
}

// Len reports the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.store)
}
