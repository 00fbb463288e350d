// Copyright 2026 The Ultrasearch Authors
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

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmissionQueueFIFOOrder(t *testing.T) {
	q := newAdmissionQueue[int](0)
	for i := 1; i <= 3; i++ {
		require.True(t, q.push(i))
	}

	head, ok := q.peek()
	require.True(t, ok)
	assert.Equal(t, 1, head)

	for want := 1; want <= 3; want++ {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok = q.pop()
	assert.False(t, ok)
}

func TestAdmissionQueueRefusesPastHighWater(t *testing.T) {
	q := newAdmissionQueue[int](2)
	require.True(t, q.push(1))
	require.True(t, q.push(2))
	assert.False(t, q.push(3))
	assert.Equal(t, 2, q.len())

	// Draining one opens room for exactly one more.
	_, ok := q.pop()
	require.True(t, ok)
	assert.True(t, q.push(3))
	assert.False(t, q.push(4))
}

func TestAdmissionQueueCompactsDrainedPrefix(t *testing.T) {
	q := newAdmissionQueue[int](0)
	for i := 0; i < 200; i++ {
		require.True(t, q.push(i))
	}
	for i := 0; i < 150; i++ {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}

	// After compaction the remaining elements still drain in order.
	assert.Equal(t, 50, q.len())
	for i := 150; i < 200; i++ {
		got, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}
}
