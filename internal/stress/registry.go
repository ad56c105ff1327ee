package stress

import (
	"sort"
	"sync"
)

// Registry 活跃与近期结束会话的注册表
// 快照/停止端点按ID寻址会话；已结束会话保留最近N个供事后检视，
// 更早的自动移出内存（归档记录在数据库，不受影响）
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	retention int
}

// NewRegistry 创建会话注册表
func NewRegistry(retention int) *Registry {
	if retention < 1 {
		retention = 1
	}
	return &Registry{
		sessions:  make(map[string]*Session),
		retention: retention,
	}
}

// Add 登记会话，并顺手淘汰超出保留数的已结束会话
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	r.evictLocked()
}

// Get 按ID取会话
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	return s, ok
}

// Remove 按ID移除会话
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len 当前登记的会话数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// StopAll 停止所有会话（服务关闭时调用，避免后台泄漏）
func (r *Registry) StopAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.sessions {
		s.Stop()
	}
}

// evictLocked 淘汰最早结束的会话直到满足保留数（运行中的不淘汰）
func (r *Registry) evictLocked() {
	var finished []*Session
	for _, s := range r.sessions {
		if !s.Running() {
			finished = append(finished, s)
		}
	}
	if len(finished) <= r.retention {
		return
	}

	sort.Slice(finished, func(i, j int) bool {
		return finished[i].StartedAt.Before(finished[j].StartedAt)
	})
	for _, s := range finished[:len(finished)-r.retention] {
		delete(r.sessions, s.ID)
	}
}
