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

package logging

import "testing"

func TestNameFilterSuppresses(t *testing.T) {
	tests := []struct {
		name   string
		ignore string
		focus  string
		target string
		want   bool
	}{
		{"no filters", "", "", "bus.Root", false},
		{"exact ignore", "bus.Root", "", "bus.Root", true},
		{"wildcard ignore", "bus.*", "", "bus.ClientCom", true},
		{"ignore miss", "bus.Root", "", "rpc.Server", false},
		{"focus hit", "", "rpc.*", "rpc.Server", false},
		{"focus miss", "", "rpc.*", "bus.Root", true},
		{"ignore wins over matching focus", "bus.Root", "bus.*", "bus.Root", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNameFilter(tt.ignore, tt.focus)
			if f == nil {
				if tt.want {
					t.Fatalf("newNameFilter(%q, %q) = nil, want a filter that suppresses %q", tt.ignore, tt.focus, tt.target)
				}
				return
			}
			if got := f.suppresses(tt.target); got != tt.want {
				t.Errorf("suppresses(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}
