package channel

import "sort"

// cursor tracks one consumer's progress through a topic. Offsets are dense
// per topic and next is the first offset never handed out. Every handed out
// offset stays outstanding until it is committed; released offsets are
// handed out again before anything new.
type cursor struct {
	next        int64
	outstanding map[int64]struct{}
	retry       []int64
}

func newCursor(start int64) *cursor {
	return &cursor{next: start, outstanding: make(map[int64]struct{})}
}

// peek returns the offset the next delivery should carry.
func (c *cursor) peek() (offset int64, redelivery bool) {
	if len(c.retry) > 0 {
		return c.retry[0], true
	}
	return c.next, false
}

// handedOut records that the offset returned by peek was delivered.
func (c *cursor) handedOut(offset int64, redelivery bool) {
	if redelivery {
		c.retry = c.retry[1:]
		return
	}
	c.outstanding[offset] = struct{}{}
	c.next = offset + 1
}

// inFlight reports whether offset was handed out and is neither committed
// nor waiting for redelivery.
func (c *cursor) inFlight(offset int64) bool {
	if _, ok := c.outstanding[offset]; !ok {
		return false
	}
	i := sort.Search(len(c.retry), func(i int) bool { return c.retry[i] >= offset })
	return i == len(c.retry) || c.retry[i] != offset
}

// release queues an in-flight offset for redelivery.
func (c *cursor) release(offset int64) bool {
	if !c.inFlight(offset) {
		return false
	}
	i := sort.Search(len(c.retry), func(i int) bool { return c.retry[i] >= offset })
	c.retry = append(c.retry, 0)
	copy(c.retry[i+1:], c.retry[i:])
	c.retry[i] = offset
	return true
}

// watermarkAfter returns the group offset that is safe to store once offset
// is committed: the lowest offset still outstanding, or next when none is.
func (c *cursor) watermarkAfter(offset int64) int64 {
	low := c.next
	for o := range c.outstanding {
		if o != offset && o < low {
			low = o
		}
	}
	return low
}

// commit marks an in-flight offset as done.
func (c *cursor) commit(offset int64) {
	delete(c.outstanding, offset)
}
