package bus

import (
	"container/list"
)

// dedupIndex is a capacity-bounded set of recently seen item IDs with
// oldest-entry eviction. It is not safe for concurrent use; the owning
// channel serializes access.
type dedupIndex struct {
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newDedupIndex(capacity int) *dedupIndex {
	return &dedupIndex{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

func (d *dedupIndex) Seen(id string) bool {
	_, ok := d.index[id]
	return ok
}

func (d *dedupIndex) Add(id string) {
	if _, ok := d.index[id]; ok {
		return
	}
	d.index[id] = d.order.PushBack(id)
	for d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.index, oldest.Value.(string))
	}
}

func (d *dedupIndex) Len() int {
	return d.order.Len()
}
