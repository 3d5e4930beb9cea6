package dispatch

import "sync"

// recentSet remembers the last n update ids in insertion order.
type recentSet struct {
	mu   sync.Mutex
	ids  map[int]struct{}
	ring []int
	next int
}

func newRecentSet(n int) *recentSet {
	if n < 1 {
		n = 1
	}
	return &recentSet{ids: make(map[int]struct{}, n), ring: make([]int, 0, n)}
}

// Add records id and reports whether it was new.
func (r *recentSet) Add(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return false
	}
	if len(r.ring) < cap(r.ring) {
		r.ring = append(r.ring, id)
	} else {
		delete(r.ids, r.ring[r.next])
		r.ring[r.next] = id
		r.next = (r.next + 1) % len(r.ring)
	}
	r.ids[id] = struct{}{}
	return true
}
