package keypool

import (
	"sync"

	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/observability"
)

// DirectProxy stands for "no proxy" when the pool is built without addresses.
const DirectProxy = "direct"

type proxyEndpoint struct {
	address string
	active  bool
}

// ProxyStatus is a point-in-time view of one proxy.
type ProxyStatus struct {
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// ProxyPool rotates round-robin over active egress proxies.
type ProxyPool struct {
	name string

	mu      sync.Mutex
	proxies []*proxyEndpoint
	index   int
}

// NewProxyPool keeps the non-empty, distinct addresses in order. With no
// addresses the pool holds the single DirectProxy entry.
func NewProxyPool(name string, addresses []string) *ProxyPool {
	pool := &ProxyPool{name: name}
	seen := make(map[string]struct{}, len(addresses))
	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		pool.proxies = append(pool.proxies, &proxyEndpoint{address: addr, active: true})
	}
	if len(pool.proxies) == 0 {
		pool.proxies = append(pool.proxies, &proxyEndpoint{address: DirectProxy, active: true})
	}

	observability.ActiveProxies.WithLabelValues(name).Set(float64(len(pool.proxies)))
	logger.GetLogger().WithFields(map[string]interface{}{
		"pool":    name,
		"proxies": len(pool.proxies),
	}).Info("Proxy pool initialized")

	return pool
}

func (p *ProxyPool) Name() string { return p.name }

func (p *ProxyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

func (p *ProxyPool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCountLocked()
}

func (p *ProxyPool) activeCountLocked() int {
	n := 0
	for _, e := range p.proxies {
		if e.active {
			n++
		}
	}
	return n
}

// Next returns the next active address, or ErrProxiesExhausted.
func (p *ProxyPool) Next() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.proxies)
	for i := 0; i < n; i++ {
		e := p.proxies[p.index]
		p.index = (p.index + 1) % n
		if e.active {
			return e.address, nil
		}
	}

	return "", ErrProxiesExhausted
}

// Deactivate takes address out of rotation. Unknown or already inactive
// addresses and DirectProxy are ignored.
func (p *ProxyPool) Deactivate(address string) {
	if address == DirectProxy {
		return
	}
	p.mu.Lock()
	var target *proxyEndpoint
	for _, e := range p.proxies {
		if e.address == address {
			target = e
			break
		}
	}
	if target == nil || !target.active {
		p.mu.Unlock()
		return
	}
	target.active = false
	remaining := p.activeCountLocked()
	p.mu.Unlock()

	observability.ProxyDeactivationsTotal.WithLabelValues(p.name).Inc()
	observability.ActiveProxies.WithLabelValues(p.name).Set(float64(remaining))

	entry := logger.GetLogger().WithFields(map[string]interface{}{
		"pool":      p.name,
		"proxy":     MaskProxy(address),
		"remaining": remaining,
	})
	if remaining == 0 {
		entry.Error("All proxies failed")
		return
	}
	entry.Warn("Proxy deactivated")
}

// IsActive reports whether address is known and still in rotation.
func (p *ProxyPool) IsActive(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.proxies {
		if e.address == address {
			return e.active
		}
	}
	return false
}

func (p *ProxyPool) Snapshot() []ProxyStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]ProxyStatus, 0, len(p.proxies))
	for _, e := range p.proxies {
		out = append(out, ProxyStatus{Address: MaskProxy(e.address), Active: e.active})
	}
	return out
}
