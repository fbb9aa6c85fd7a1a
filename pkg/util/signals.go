package util

import "sync"

// SigHandler 信号回调，sender 为触发方，params 为附加参数
type SigHandler func(sender any, params ...any)

type sigEntry struct {
	id      int
	handler SigHandler
}

// Signals 进程内的简单事件分发，回调在 Emit 的 goroutine 中同步执行
type Signals struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]sigEntry
}

var defaultSignals = NewSignals()

// Sig 全局信号表
func Sig() *Signals { return defaultSignals }

func NewSignals() *Signals {
	return &Signals{handlers: make(map[string][]sigEntry)}
}

// Connect 注册回调，返回值用于 Disconnect
func (s *Signals) Connect(event string, h SigHandler) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.handlers[event] = append(s.handlers[event], sigEntry{id: s.nextID, handler: h})
	return s.nextID
}

func (s *Signals) Disconnect(event string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.handlers[event]
	for i, e := range list {
		if e.id == id {
			s.handlers[event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (s *Signals) Emit(event string, sender any, params ...any) {
	s.mu.RLock()
	list := append([]sigEntry(nil), s.handlers[event]...)
	s.mu.RUnlock()
	for _, e := range list {
		e.handler(sender, params...)
	}
}
