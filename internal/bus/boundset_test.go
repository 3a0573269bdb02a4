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
	"testing"
	"time"
)

func TestBoundSetCheck(t *testing.T) {
	b := NewBoundSet(time.Minute, 10)

	var id [16]byte
	id[0] = 1

	if b.Check(id) {
		t.Fatal("first Check() = true, want false")
	}
	if !b.Check(id) {
		t.Fatal("second Check() = false, want true")
	}
}

func TestBoundSetEvictsExpired(t *testing.T) {
	b := NewBoundSet(5*time.Millisecond, 2)

	var a, c [16]byte
	a[0], c[0] = 1, 2

	b.Check(a)
	time.Sleep(10 * time.Millisecond)

	// Pushing past maxSize triggers the two-phase evict; a should age out.
	var d [16]byte
	d[0] = 3
	b.Check(c)
	b.Check(d)

	if b.Check(a) {
		t.Error("stale id reported as seen after eviction window")
	}
}
