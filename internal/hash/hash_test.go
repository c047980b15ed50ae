/*
Copyright © 2026 the demgen authors.
This file is part of demgen.

demgen is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

demgen is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with demgen.  If not, see <http://www.gnu.org/licenses/>.*/

package hash

import (
	"math"
	"strings"
	"testing"
)

type params struct {
	Seed  uint64
	Noise float64
	Names []string
}

func TestHash(t *testing.T) {
	a := Hash(params{Seed: 1, Noise: 0.1, Names: []string{"tower"}})
	if len(a) != 32 {
		t.Errorf("hash %s should have 32 hex digits", a)
	}
	if b := Hash(params{Seed: 1, Noise: 0.1, Names: []string{"tower"}}); a != b {
		t.Errorf("equal objects hash differently: %s != %s", a, b)
	}
	if b := Hash(params{Seed: 2, Noise: 0.1, Names: []string{"tower"}}); a == b {
		t.Error("different seeds should hash differently")
	}
}

func TestHashFallback(t *testing.T) {
	// gob cannot encode structs without exported fields.
	type unencodable struct {
		v float64
	}
	a := Hash(unencodable{v: math.Inf(1)})
	if a != Hash(unencodable{v: math.Inf(1)}) {
		t.Error("fallback hash should be deterministic")
	}
	if a == Hash(unencodable{v: 2}) {
		t.Error("fallback hash should depend on field values")
	}
	if !strings.Contains(Dump(unencodable{v: 1.5}), "1.5") {
		t.Error("dump should include field values")
	}
}
