/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package lock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/mef/internal/lock"
)

func TestRecursiveReentry(t *testing.T) {
	var l lock.Recursive
	assert.False(t, l.Held())

	l.Lock()
	l.Lock()
	assert.True(t, l.Held())
	l.Unlock()
	assert.True(t, l.Held(), "one Lock is still outstanding")
	l.Unlock()
	assert.False(t, l.Held())
}

func TestRecursiveExcludesOtherGoroutines(t *testing.T) {
	var l lock.Recursive
	l.Lock()

	acquired := make(chan struct{})
	go func() {
		l.Lock()
		assert.True(t, l.Held())
		l.Unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held by another goroutine")
	case <-time.After(50 * time.Millisecond):
	}
	l.Unlock()

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("waiting goroutine never acquired the lock")
	}
}

func TestRecursiveUnlockByOtherGoroutinePanics(t *testing.T) {
	var l lock.Recursive
	l.Lock()
	defer l.Unlock()

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		l.Unlock()
	}()
	require.NotNil(t, <-done)
	assert.True(t, l.Held())
}

func TestRecursiveCounter(t *testing.T) {
	var (
		l  lock.Recursive
		wg sync.WaitGroup
		n  int
	)
	for range 32 {
		wg.Go(func() {
			for range 100 {
				l.Lock()
				l.Lock()
				n++
				l.Unlock()
				l.Unlock()
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 3200, n)
}
