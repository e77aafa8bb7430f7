package analysis

// shadowNode is an intrusive doubly linked list element. Head is MRU, tail
// is LRU.
type shadowNode struct {
	block uint64
	prev  *shadowNode
	next  *shadowNode
}

// shadowCache is a fully associative LRU cache of block numbers with the
// same number of lines as the cache it shadows.
type shadowCache struct {
	capacity int
	nodes    map[uint64]*shadowNode
	head     *shadowNode
	tail     *shadowNode
}

func newShadowCache(capacity int) *shadowCache {
	if capacity <= 0 {
		panic("shadow cache capacity must be positive")
	}

	return &shadowCache{
		capacity: capacity,
		nodes:    make(map[uint64]*shadowNode),
	}
}

func (c *shadowCache) Len() int { return len(c.nodes) }

// Contains reports whether block is resident without touching it.
func (c *shadowCache) Contains(block uint64) bool {
	_, ok := c.nodes[block]
	return ok
}

// Access promotes block to MRU, inserting it and evicting the LRU block if
// needed. It reports whether block was resident.
func (c *shadowCache) Access(block uint64) bool {
	if n, ok := c.nodes[block]; ok {
		c.moveToFront(n)
		return true
	}

	if len(c.nodes) == c.capacity {
		lru := c.tail
		c.remove(lru)
		delete(c.nodes, lru.block)
	}

	n := &shadowNode{block: block}
	c.nodes[block] = n
	c.pushFront(n)

	return false
}

func (c *shadowCache) pushFront(n *shadowNode) {
	n.prev = nil
	n.next = c.head

	if c.head != nil {
		c.head.prev = n
	}

	c.head = n

	if c.tail == nil {
		c.tail = n
	}
}

func (c *shadowCache) remove(n *shadowNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}

	n.prev = nil
	n.next = nil
}

func (c *shadowCache) moveToFront(n *shadowNode) {
	if c.head == n {
		return
	}

	c.remove(n)
	c.pushFront(n)
}
