// Package dedupe 提供消费侧的幂等去重集合。
//
// at-least-once 投递下消息可能重复到达，worker 用消息 ID 去重。
// 集合有容量上限，按先进先出淘汰，防止长时间运行无界增长。
package dedupe

import "sync"

// Set 有界的已见 ID 集合，并发安全
type Set struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	cap   int
}

// NewSet 创建容量为 capacity 的集合，capacity <= 0 时取 1024
func NewSet(capacity int) *Set {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Set{
		seen: make(map[string]struct{}, capacity),
		cap:  capacity,
	}
}

// Seen 记录 ID 并返回之前是否已见过
//
// 空 ID 永远视为未见过（没有去重依据时宁可重复处理）。
func (s *Set) Seen(id string) bool {
	if id == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return true
	}

	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.seen, oldest)
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return false
}

// Len 当前集合大小
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
