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

package idpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireNeverReturnsZero(t *testing.T) {
	p := New()
	for i := 0; i < 10; i++ {
		id, err := p.Acquire()
		require.NoError(t, err)
		assert.NotEqual(t, uint16(0), id)
	}
}

func TestAcquireReusesSmallestFreedSlot(t *testing.T) {
	p := New()
	ids := make([]uint16, 5)
	for i := range ids {
		id, err := p.Acquire()
		require.NoError(t, err)
		ids[i] = id
	}
	assert.Equal(t, []uint16{1, 2, 3, 4, 5}, ids)

	p.Release(2)
	next, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, uint16(2), next)
}

func TestReleaseZeroAndUnacquiredAreNoops(t *testing.T) {
	p := New()
	p.Release(0)
	p.Release(9999)

	id, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), id)
}

func TestExhaustionReturnsResourceExhausted(t *testing.T) {
	p := New()
	for i := 0; i < 0xFFFF; i++ {
		_, err := p.Acquire()
		require.NoError(t, err)
	}
	_, err := p.Acquire()
	assert.ErrorIs(t, err, ErrResourceExhausted)
}
