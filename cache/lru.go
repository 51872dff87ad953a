package cache

import (
	"context"
	"sync"
	"time"
)

// ============================================================
// LRU 进程内后端（双向链表实现 O(1) 操作）
// ============================================================

// LRUBackend 容量受限的进程内键值后端。
// 容量满时先淘汰最久未使用条目再插入；条目可带独立 TTL，0 表示不过期。
type LRUBackend struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*lruNode
	head     *lruNode // 最近使用
	tail     *lruNode // 最久未使用
}

type lruNode struct {
	key       string
	value     []byte
	expiresAt time.Time // 零值表示无 TTL
	prev      *lruNode
	next      *lruNode
}

// NewLRUBackend 创建 LRU 后端，capacity 为条目数上限。
func NewLRUBackend(capacity int) *LRUBackend {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LRUBackend{
		capacity: capacity,
		items:    make(map[string]*lruNode),
	}
}

// Get 返回未过期的缓存值；过期条目就地删除并按未命中处理。
func (b *LRUBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	node, ok := b.items[key]
	if !ok {
		return nil, false, nil
	}
	if !node.expiresAt.IsZero() && time.Now().After(node.expiresAt) {
		b.removeNode(node)
		delete(b.items, key)
		return nil, false, nil
	}
	b.moveToHead(node)
	return node.value, true, nil
}

// Set 写入缓存值；同键写入为最后写入生效，容量满时淘汰尾部。
func (b *LRUBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	if node, ok := b.items[key]; ok {
		node.value = value
		node.expiresAt = expiresAt
		b.moveToHead(node)
		return nil
	}

	if len(b.items) >= b.capacity {
		b.evictTail()
	}

	node := &lruNode{key: key, value: value, expiresAt: expiresAt}
	b.items[key] = node
	b.addToHead(node)
	return nil
}

// Delete 删除一个条目，键不存在时为空操作。
func (b *LRUBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if node, ok := b.items[key]; ok {
		b.removeNode(node)
		delete(b.items, key)
	}
	return nil
}

// Clear 清空全部条目。
func (b *LRUBackend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = make(map[string]*lruNode)
	b.head = nil
	b.tail = nil
	return nil
}

// Len 返回当前条目数。
func (b *LRUBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Capacity 返回容量上限。
func (b *LRUBackend) Capacity() int { return b.capacity }

// addToHead 添加节点到头部 O(1)
func (b *LRUBackend) addToHead(node *lruNode) {
	node.prev = nil
	node.next = b.head
	if b.head != nil {
		b.head.prev = node
	}
	b.head = node
	if b.tail == nil {
		b.tail = node
	}
}

// removeNode 从链表中移除节点 O(1)
func (b *LRUBackend) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		b.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		b.tail = node.prev
	}
}

// moveToHead 移动节点到头部 O(1)
func (b *LRUBackend) moveToHead(node *lruNode) {
	if node == b.head {
		return
	}
	b.removeNode(node)
	b.addToHead(node)
}

// evictTail 淘汰尾部节点 O(1)
func (b *LRUBackend) evictTail() {
	if b.tail == nil {
		return
	}
	delete(b.items, b.tail.key)
	b.removeNode(b.tail)
}
