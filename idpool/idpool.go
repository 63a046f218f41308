// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package idpool allocates MQTT packet identifiers: 1..65535, never
// reusing one still outstanding, never issuing 0.
package idpool

import (
	"errors"
	"sync"
)

// ErrResourceExhausted is returned by Acquire when all 65535
// identifiers are outstanding.
var ErrResourceExhausted = errors.New("idpool: no free packet identifier")

// Pool allocates and releases 16-bit packet identifiers. Slot 0 is a
// permanently-occupied sentinel: it is never handed out, so the zero
// value of a packet identifier can always be treated as "unset".
type Pool struct {
	mu   sync.Mutex
	used []bool // used[0] is always true.
	next int    // next slot to try, smallest-free-first is a scan from here.
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		used: []bool{true}, // slot 0 occupied.
		next: 1,
	}
}

// Acquire returns the smallest free identifier in 1..65535 and marks
// it in use. It returns ErrResourceExhausted once all 65535 are
// outstanding.
func (p *Pool) Acquire() (uint16, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := p.next; i < len(p.used); i++ {
		if !p.used[i] {
			p.used[i] = true
			p.next = i + 1
			return uint16(i), nil
		}
	}

	if id := len(p.used); id <= 0xFFFF {
		p.used = append(p.used, true)
		p.next = id + 1
		return uint16(id), nil
	}

	// The backing slice has grown to its maximum width (65536 entries,
	// slot 0 included) and nothing from p.next up is free. Release
	// lowers p.next to every id it frees, so ids below p.next are all
	// in use; this scan is a defensive fallback.
	for i := 1; i < p.next; i++ {
		if !p.used[i] {
			p.used[i] = true
			p.next = i + 1
			return uint16(i), nil
		}
	}

	return 0, ErrResourceExhausted
}

// Release returns id to the free pool. Releasing an id that was never
// acquired, or 0, is a no-op.
func (p *Pool) Release(id uint16) {
	if id == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if int(id) >= len(p.used) {
		return
	}
	p.used[id] = false
	if int(id) < p.next {
		p.next = int(id)
	}
}
