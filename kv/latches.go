package kv

import (
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"
)

const latchSlots = 1024

// latches serializes commands that touch overlapping keys while they execute.
// Keys hash into a fixed slot table; slots are acquired in index order so two
// commands with overlapping slot sets cannot deadlock.
type latches struct {
	slots [latchSlots]sync.Mutex
}

func (l *latches) slotsFor(keys []Key) []int {
	seen := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		seen[int(murmur3.Sum64(k)%latchSlots)] = struct{}{}
	}
	idx := make([]int, 0, len(seen))
	for i := range seen {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

func (l *latches) acquire(keys []Key) (release func()) {
	idx := l.slotsFor(keys)
	for _, i := range idx {
		l.slots[i].Lock()
	}
	return func() {
		for n := len(idx) - 1; n >= 0; n-- {
			l.slots[idx[n]].Unlock()
		}
	}
}
