package keypool

import (
	"fmt"
	"sync"

	"vocab-bot/infrastructure/logger"
	"vocab-bot/infrastructure/observability"
)

// Credential is a metered API key together with the client bound to it.
// The client is built once and is safe to share after construction.
type Credential[C any] struct {
	Key    string
	Client C

	usedUnits int64
	active    bool
}

// CredentialStatus is a point-in-time view of one credential.
type CredentialStatus struct {
	Key       string `json:"key"`
	UsedUnits int64  `json:"used_units"`
	Active    bool   `json:"active"`
}

// CredentialPool rotates round-robin over active credentials.
type CredentialPool[C any] struct {
	name string

	mu          sync.Mutex
	credentials []*Credential[C]
	index       int
}

// NewCredentialPool builds one client per non-empty, distinct key.
func NewCredentialPool[C any](name string, keys []string, factory func(key string) (C, error)) (*CredentialPool[C], error) {
	pool := &CredentialPool[C]{name: name}
	seen := make(map[string]struct{}, len(keys))

	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		client, err := factory(key)
		if err != nil {
			return nil, fmt.Errorf("build client for key %s: %w", MaskKey(key), err)
		}
		pool.credentials = append(pool.credentials, &Credential[C]{Key: key, Client: client, active: true})
	}

	observability.ActiveCredentials.WithLabelValues(name).Set(float64(len(pool.credentials)))
	logger.GetLogger().WithFields(map[string]interface{}{
		"pool":        name,
		"credentials": len(pool.credentials),
	}).Info("Credential pool initialized")

	return pool, nil
}

// Name identifies the pool in logs and metrics.
func (p *CredentialPool[C]) Name() string { return p.name }

// Len returns the number of credentials, active or not.
func (p *CredentialPool[C]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.credentials)
}

// ActiveCount returns the number of credentials still in rotation.
func (p *CredentialPool[C]) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCountLocked()
}

func (p *CredentialPool[C]) activeCountLocked() int {
	n := 0
	for _, c := range p.credentials {
		if c.active {
			n++
		}
	}
	return n
}

// Next returns the next active credential, advancing the cursor past every
// slot it inspects. At most Len() slots are scanned.
func (p *CredentialPool[C]) Next() (*Credential[C], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.credentials)
	for i := 0; i < n; i++ {
		cred := p.credentials[p.index]
		p.index = (p.index + 1) % n
		if cred.active {
			return cred, nil
		}
	}

	return nil, ErrCredentialsExhausted
}

// Deactivate takes the credential out of rotation for the life of the process.
func (p *CredentialPool[C]) Deactivate(cred *Credential[C]) {
	if cred == nil {
		return
	}

	p.mu.Lock()
	if !cred.active {
		p.mu.Unlock()
		return
	}
	cred.active = false
	remaining := p.activeCountLocked()
	p.mu.Unlock()

	observability.CredentialDeactivationsTotal.WithLabelValues(p.name).Inc()
	observability.ActiveCredentials.WithLabelValues(p.name).Set(float64(remaining))

	entry := logger.GetLogger().WithFields(map[string]interface{}{
		"pool":      p.name,
		"key":       MaskKey(cred.Key),
		"remaining": remaining,
	})
	if remaining == 0 {
		entry.Error("All credentials exhausted; pool needs new keys or a quota reset")
		return
	}
	entry.Warn("Credential deactivated")
}

// Record adds consumed quota units to the credential. Negative values are ignored.
func (p *CredentialPool[C]) Record(cred *Credential[C], units int64) {
	if cred == nil || units <= 0 {
		return
	}

	p.mu.Lock()
	cred.usedUnits += units
	total := cred.usedUnits
	p.mu.Unlock()

	observability.CredentialUnitsTotal.WithLabelValues(p.name, MaskKey(cred.Key)).Add(float64(units))
	logger.GetLogger().WithFields(map[string]interface{}{
		"pool":       p.name,
		"key":        MaskKey(cred.Key),
		"units":      units,
		"used_units": total,
	}).Debug("Recorded credential usage")
}

// UsedUnits returns the cumulative units recorded against cred.
func (p *CredentialPool[C]) UsedUnits(cred *Credential[C]) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cred.usedUnits
}

// IsActive reports whether cred is still in rotation.
func (p *CredentialPool[C]) IsActive(cred *Credential[C]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cred.active
}

// Snapshot returns the status of every credential in pool order, keys masked.
func (p *CredentialPool[C]) Snapshot() []CredentialStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]CredentialStatus, 0, len(p.credentials))
	for _, c := range p.credentials {
		out = append(out, CredentialStatus{
			Key:       MaskKey(c.Key),
			UsedUnits: c.usedUnits,
			Active:    c.active,
		})
	}
	return out
}
