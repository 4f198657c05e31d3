/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package thread

import (
	"container/list"
	"sync"
)

// taskQueue is the shared, blocking FIFO behind a ThreadPool. A nil Task in
// the queue is the exit sentinel: pop returns it to exactly one worker,
// which must terminate without re-queuing it.
type taskQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items *list.List // of Task
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{items: list.New()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *taskQueue) push(task Task) {
	q.mu.Lock()
	q.items.PushBack(task)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *taskQueue) pushFirst(task Task) {
	q.mu.Lock()
	q.items.PushFront(task)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a task is available and removes it.
func (q *taskQueue) pop() Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 {
		q.cond.Wait()
	}

	front := q.items.Front()
	q.items.Remove(front)
	return front.Value.(Task)
}

func (q *taskQueue) size() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return uint64(q.items.Len())
}
