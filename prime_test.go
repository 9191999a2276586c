// Copyright 2024 The Cockroach Authors
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

package quadmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPrime(t *testing.T) {
	primes := map[int]bool{2: true, 3: true, 5: true, 7: true, 11: true, 13: true,
		17: true, 19: true, 23: true, 29: true, 31: true, 37: true, 41: true,
		43: true, 47: true}
	for n := -5; n < 50; n++ {
		require.Equal(t, primes[n], isPrime(n), "n=%d", n)
	}

	require.True(t, isPrime(7919))
	require.True(t, isPrime(1_000_003))
	require.False(t, isPrime(7917))
	// Square of a prime.
	require.False(t, isPrime(7919*7919))
}

func TestNextPrime(t *testing.T) {
	testCases := []struct {
		n, expected int
	}{
		{-3, 2},
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 3},
		{4, 5},
		{8, 11},
		{14, 17},
		{24, 29},
		{34, 37},
		{74, 79},
		{158, 163},
		{1000, 1009},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, nextPrime(c.n), "n=%d", c.n)
	}

	// nextPrime is the smallest prime >= n.
	for n := 0; n < 2000; n++ {
		p := nextPrime(n)
		require.True(t, isPrime(p))
		require.GreaterOrEqual(t, p, n)
		for q := n; q < p; q++ {
			require.False(t, isPrime(q))
		}
	}
}
