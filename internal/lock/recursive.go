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

// Package lock provides a mutex that the goroutine holding it may acquire
// again.
//
// Import satisfaction nests: satisfying one part pulls export values, which
// satisfy further parts, possibly through the same engine. Those nested calls
// run on the caller's goroutine and must not block on the lock it already
// holds, while other goroutines must wait for the whole chain to finish.
package lock

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Recursive is a mutex that its owning goroutine may lock repeatedly; it is
// released when every Lock has been matched by Unlock. The zero value is
// unlocked.
type Recursive struct {
	mu    sync.Mutex
	cond  *sync.Cond
	owner uint64
	depth int
}

// Lock acquires l, waiting while another goroutine holds it.
func (l *Recursive) Lock() {
	g := goroutineID()
	l.mu.Lock()
	if l.cond == nil {
		l.cond = sync.NewCond(&l.mu)
	}
	for l.depth > 0 && l.owner != g {
		l.cond.Wait()
	}
	l.owner = g
	l.depth++
	l.mu.Unlock()
}

// Unlock releases one Lock of the calling goroutine. It panics when that
// goroutine does not hold l.
func (l *Recursive) Unlock() {
	g := goroutineID()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.depth == 0 || l.owner != g {
		panic("mef(lock): unlock of a lock not held by this goroutine")
	}
	l.depth--
	if l.depth == 0 {
		l.owner = 0
		l.cond.Broadcast()
	}
}

// Held reports whether the calling goroutine holds l.
func (l *Recursive) Held() bool {
	g := goroutineID()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth > 0 && l.owner == g
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID parses the id from the header of the current goroutine's
// stack trace, "goroutine 42 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("mef(lock): cannot parse goroutine id: " + err.Error())
	}
	return id
}
