package service

import "sync"

// inflightGuard 保证同一类 AI 请求同时最多只有一个在进行
type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

// acquire 占用 action，成功时返回释放函数
func (g *inflightGuard) acquire(action string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[action]; busy {
		return nil, false
	}
	g.active[action] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, action)
			g.mu.Unlock()
		})
	}, true
}

func (g *inflightGuard) busy(action string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[action]
	return ok
}
