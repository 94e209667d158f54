// 包 mem：进程内 TTL + LRU 缓存实现
package mem

import (
	"container/list"
	"context"
	"sync"
	"time"

	"ip-query/internal/cache"
	"ip-query/internal/geo"
)

type entry struct {
	key       string
	val       geo.Result
	expiresAt time.Time
}

// 文档注释：进程内缓存
// 背景：map 提供 O(1) 定位，链表维护最近使用顺序；容量到达上限时淘汰最久未使用的条目。
// 约束：读写都持互斥锁，条目不会被并发读到半写状态；过期条目在读取与后台 Sweep 中回收。
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	items   map[string]*list.Element
	order   *list.List // Front=最旧 Back=最新
}

var _ cache.Store = (*Cache)(nil)

func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get：命中时刷新使用顺序；过期条目就地删除并按未命中处理
func (c *Cache) Get(_ context.Context, key string) (geo.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return geo.Result{}, false
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expiresAt) {
		c.order.Remove(el)
		delete(c.items, key)
		return geo.Result{}, false
	}
	c.order.MoveToBack(el)
	return e.val, true
}

// Set：已存在则更新并刷新顺序；容量满时先淘汰最旧条目
func (c *Cache) Set(_ context.Context, key string, val geo.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	expires := time.Now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.val = val
		e.expiresAt = expires
		c.order.MoveToBack(el)
		return
	}
	if len(c.items) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	c.items[key] = c.order.PushBack(&entry{key: key, val: val, expiresAt: expires})
}

// Sweep：回收全部已过期条目，返回回收数量；由后台任务周期调用
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	n := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if now.After(e.expiresAt) {
			c.order.Remove(el)
			delete(c.items, e.key)
			n++
		}
		el = next
	}
	return n
}

// Len：当前条目数（含未被读取触发回收的过期条目）
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
