package cache

import (
	"container/heap"
	"container/list"
	"fmt"
	"sync"
)

// NewStrategy creates the eviction strategy for the given variant.
// Strategy selection happens once at cache construction time; the store then
// dispatches through the EvictionStrategy interface.
func NewStrategy(t StrategyType) (EvictionStrategy, error) {
	switch t {
	case StrategyLRU, "":
		return NewLRUEviction(), nil
	case StrategyLFU:
		return NewLFUEviction(), nil
	case StrategyFIFO:
		return NewFIFOEviction(), nil
	case StrategySize:
		return NewSizeEviction(), nil
	case StrategyPriority:
		return NewPriorityEviction(), nil
	default:
		return nil, fmt.Errorf("unknown eviction strategy %q", t)
	}
}

// LRUEviction implements least-recently-used eviction. It maintains access
// order in a doubly-linked list for O(1) bookkeeping; the victim is the
// least recently accessed key, which for never-accessed entries is the
// earliest inserted.
type LRUEviction struct {
	mu       sync.Mutex
	elements map[string]*list.Element
	order    *list.List // front = most recently used
}

// NewLRUEviction creates a new LRU eviction strategy.
func NewLRUEviction() *LRUEviction {
	return &LRUEviction{
		elements: make(map[string]*list.Element),
		order:    list.New(),
	}
}

// SelectVictim returns the least recently accessed key still present in
// entries.
func (l *LRUEviction) SelectVictim(entries map[string]*Entry) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for elem := l.order.Back(); elem != nil; elem = elem.Prev() {
		key := elem.Value.(string)
		if _, exists := entries[key]; exists {
			return key, true
		}
	}
	return "", false
}

// OnAccess moves the entry to the front of the access order.
func (l *LRUEviction) OnAccess(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, exists := l.elements[entry.Key]; exists {
		l.order.MoveToFront(elem)
	}
}

// OnAdd registers a new entry as most recently used.
func (l *LRUEviction) OnAdd(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, exists := l.elements[entry.Key]; exists {
		l.order.MoveToFront(elem)
		return
	}
	l.elements[entry.Key] = l.order.PushFront(entry.Key)
}

// OnRemove drops the entry from the access order.
func (l *LRUEviction) OnRemove(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, exists := l.elements[entry.Key]; exists {
		l.order.Remove(elem)
		delete(l.elements, entry.Key)
	}
}

// lfuNode tracks one key's access frequency.
type lfuNode struct {
	key  string
	freq int64
}

// LFUEviction implements least-frequently-used eviction. Keys are grouped
// into frequency buckets, each an ordered list where the front is the least
// recently accessed, giving O(1) bookkeeping and an LRU tie-break among keys
// with equal counts.
type LFUEviction struct {
	mu       sync.Mutex
	elements map[string]*list.Element
	buckets  map[int64]*list.List // front = least recently accessed at this frequency
	minFreq  int64
}

// NewLFUEviction creates a new LFU eviction strategy.
func NewLFUEviction() *LFUEviction {
	return &LFUEviction{
		elements: make(map[string]*list.Element),
		buckets:  make(map[int64]*list.List),
	}
}

// SelectVictim returns the key with the lowest access count still present in
// entries, preferring the least recently accessed among ties.
func (l *LFUEviction) SelectVictim(entries map[string]*Entry) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for freq := l.minFreq; ; freq++ {
		bucket, exists := l.buckets[freq]
		if !exists {
			// Buckets are sparse after removals; stop once no higher
			// frequencies remain.
			if !l.anyBucketAbove(freq) {
				return "", false
			}
			continue
		}
		for elem := bucket.Front(); elem != nil; elem = elem.Next() {
			key := elem.Value.(*lfuNode).key
			if _, live := entries[key]; live {
				return key, true
			}
		}
	}
}

// anyBucketAbove reports whether any frequency bucket at or above freq holds
// keys. Caller must hold l.mu.
func (l *LFUEviction) anyBucketAbove(freq int64) bool {
	for f := range l.buckets {
		if f >= freq {
			return true
		}
	}
	return false
}

// OnAccess promotes the entry to the next frequency bucket.
func (l *LFUEviction) OnAccess(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, exists := l.elements[entry.Key]
	if !exists {
		return
	}
	node := elem.Value.(*lfuNode)
	l.unlink(elem, node)
	node.freq++
	l.link(node)
}

// OnAdd registers a new entry at frequency one.
func (l *LFUEviction) OnAdd(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, exists := l.elements[entry.Key]; exists {
		// Replacing an existing key keeps its frequency but refreshes
		// its recency within the bucket.
		node := elem.Value.(*lfuNode)
		l.unlink(elem, node)
		l.link(node)
		return
	}
	l.link(&lfuNode{key: entry.Key, freq: 1})
	l.minFreq = 1
}

// OnRemove drops the entry from its frequency bucket.
func (l *LFUEviction) OnRemove(entry *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, exists := l.elements[entry.Key]
	if !exists {
		return
	}
	node := elem.Value.(*lfuNode)
	l.unlink(elem, node)
	delete(l.elements, entry.Key)
	if node.freq == l.minFreq {
		l.advanceMinFreq()
	}
}

// link appends the node to its frequency bucket and indexes it.
// Caller must hold l.mu.
func (l *LFUEviction) link(node *lfuNode) {
	bucket, exists := l.buckets[node.freq]
	if !exists {
		bucket = list.New()
		l.buckets[node.freq] = bucket
	}
	l.elements[node.key] = bucket.PushBack(node)
	if l.minFreq == 0 || node.freq < l.minFreq {
		l.minFreq = node.freq
	}
}

// unlink removes the node's element from its bucket, dropping the bucket
// when it empties. Caller must hold l.mu.
func (l *LFUEviction) unlink(elem *list.Element, node *lfuNode) {
	bucket := l.buckets[node.freq]
	bucket.Remove(elem)
	if bucket.Len() == 0 {
		delete(l.buckets, node.freq)
	}
}

// advanceMinFreq recomputes the minimum populated frequency after a removal.
// Caller must hold l.mu.
func (l *LFUEviction) advanceMinFreq() {
	l.minFreq = 0
	for f := range l.buckets {
		if l.minFreq == 0 || f < l.minFreq {
			l.minFreq = f
		}
	}
}

// FIFOEviction implements first-in-first-out eviction. The victim is always
// the earliest inserted key, regardless of access pattern.
type FIFOEviction struct {
	mu       sync.Mutex
	elements map[string]*list.Element
	order    *list.List // front = earliest inserted
}

// NewFIFOEviction creates a new FIFO eviction strategy.
func NewFIFOEviction() *FIFOEviction {
	return &FIFOEviction{
		elements: make(map[string]*list.Element),
		order:    list.New(),
	}
}

// SelectVictim returns the earliest inserted key still present in entries.
func (f *FIFOEviction) SelectVictim(entries map[string]*Entry) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for elem := f.order.Front(); elem != nil; elem = elem.Next() {
		key := elem.Value.(string)
		if _, exists := entries[key]; exists {
			return key, true
		}
	}
	return "", false
}

// OnAccess is a no-op: FIFO ignores reads.
func (f *FIFOEviction) OnAccess(entry *Entry) {}

// OnAdd records insertion order. Replacing an existing key keeps its
// original position.
func (f *FIFOEviction) OnAdd(entry *Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.elements[entry.Key]; exists {
		return
	}
	f.elements[entry.Key] = f.order.PushBack(entry.Key)
}

// OnRemove drops the entry from the insertion order.
func (f *FIFOEviction) OnRemove(entry *Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if elem, exists := f.elements[entry.Key]; exists {
		f.order.Remove(elem)
		delete(f.elements, entry.Key)
	}
}

// sizeItem is a heap element ordering keys largest-first with FIFO tie-break.
type sizeItem struct {
	key   string
	size  int64
	seq   uint64 // insertion sequence for the tie-break
	index int    // heap index, maintained by sizeHeap
}

type sizeHeap []*sizeItem

func (h sizeHeap) Len() int { return len(h) }

func (h sizeHeap) Less(i, j int) bool {
	if h[i].size != h[j].size {
		return h[i].size > h[j].size
	}
	return h[i].seq < h[j].seq
}

func (h sizeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *sizeHeap) Push(x any) {
	item := x.(*sizeItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *sizeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// SizeEviction evicts the largest entry first, breaking ties by insertion
// order. A max-heap keyed on entry size keeps selection at O(log n).
type SizeEviction struct {
	mu    sync.Mutex
	items map[string]*sizeItem
	heap  sizeHeap
	seq   uint64
}

// NewSizeEviction creates a new size-based eviction strategy.
func NewSizeEviction() *SizeEviction {
	return &SizeEviction{items: make(map[string]*sizeItem)}
}

// SelectVictim returns the largest entry still present in entries.
func (s *SizeEviction) SelectVictim(entries map[string]*Entry) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.heap) > 0 {
		top := s.heap[0]
		if _, exists := entries[top.key]; exists {
			return top.key, true
		}
		// Stale heap entry for a key the cache no longer holds.
		heap.Pop(&s.heap)
		delete(s.items, top.key)
	}
	return "", false
}

// OnAccess is a no-op: size-based eviction ignores access patterns.
func (s *SizeEviction) OnAccess(entry *Entry) {}

// OnAdd indexes the entry by its size.
func (s *SizeEviction) OnAdd(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, exists := s.items[entry.Key]; exists {
		item.size = entry.SizeBytes
		heap.Fix(&s.heap, item.index)
		return
	}
	s.seq++
	item := &sizeItem{key: entry.Key, size: entry.SizeBytes, seq: s.seq}
	s.items[entry.Key] = item
	heap.Push(&s.heap, item)
}

// OnRemove drops the entry from the size index.
func (s *SizeEviction) OnRemove(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, exists := s.items[entry.Key]; exists {
		heap.Remove(&s.heap, item.index)
		delete(s.items, entry.Key)
	}
}

// priorityItem is a heap element ordering keys lowest-priority-first with an
// LRU tie-break among equal priorities.
type priorityItem struct {
	key      string
	priority int
	seq      uint64 // last access sequence for the tie-break
	index    int
}

type priorityHeap []*priorityItem

func (h priorityHeap) Len() int { return len(h) }

func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *priorityHeap) Push(x any) {
	item := x.(*priorityItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// PriorityEviction evicts the entry with the lowest explicit priority value.
// Entries stored without a priority have priority 0, the lowest. Ties are
// broken by recency: the least recently accessed of the equal-priority
// entries goes first. A min-heap keeps selection at O(log n).
type PriorityEviction struct {
	mu    sync.Mutex
	items map[string]*priorityItem
	heap  priorityHeap
	seq   uint64
}

// NewPriorityEviction creates a new priority-based eviction strategy.
func NewPriorityEviction() *PriorityEviction {
	return &PriorityEviction{items: make(map[string]*priorityItem)}
}

// SelectVictim returns the lowest-priority entry still present in entries.
func (p *PriorityEviction) SelectVictim(entries map[string]*Entry) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.heap) > 0 {
		top := p.heap[0]
		if _, exists := entries[top.key]; exists {
			return top.key, true
		}
		heap.Pop(&p.heap)
		delete(p.items, top.key)
	}
	return "", false
}

// OnAccess refreshes the entry's recency for the tie-break.
func (p *PriorityEviction) OnAccess(entry *Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[entry.Key]; exists {
		p.seq++
		item.seq = p.seq
		heap.Fix(&p.heap, item.index)
	}
}

// OnAdd indexes the entry by its priority.
func (p *PriorityEviction) OnAdd(entry *Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	if item, exists := p.items[entry.Key]; exists {
		item.priority = entry.Priority
		item.seq = p.seq
		heap.Fix(&p.heap, item.index)
		return
	}
	item := &priorityItem{key: entry.Key, priority: entry.Priority, seq: p.seq}
	p.items[entry.Key] = item
	heap.Push(&p.heap, item)
}

// OnRemove drops the entry from the priority index.
func (p *PriorityEviction) OnRemove(entry *Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if item, exists := p.items[entry.Key]; exists {
		heap.Remove(&p.heap, item.index)
		delete(p.items, entry.Key)
	}
}
