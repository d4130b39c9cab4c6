package capture

import "strings"

var aliasReplacer = strings.NewReplacer(".", "_", "-", "_")

// Alias derives a diagram-safe identifier from a domain name. Distinct
// domains can normalize to the same alias; that collision is accepted.
func Alias(domain string) string {
	return aliasReplacer.Replace(domain)
}

// RegistryEntry is one (domain, ordinal) pair in first-seen order, used for
// snapshot serialization.
type RegistryEntry struct {
	Domain  string `json:"domain"`
	Ordinal int    `json:"ordinal"`
}

// ParticipantRegistry assigns each distinct domain a stable 1-based ordinal
// in first-seen order. Entries are only removed by Reset.
type ParticipantRegistry struct {
	order    []string
	ordinals map[string]int
}

// NewParticipantRegistry creates an empty registry.
func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{ordinals: make(map[string]int)}
}

// Register assigns the next ordinal to an unseen domain and returns the
// domain's alias. Re-registering a known domain is a lookup only.
func (p *ParticipantRegistry) Register(domain string) string {
	if _, ok := p.ordinals[domain]; !ok {
		p.order = append(p.order, domain)
		p.ordinals[domain] = len(p.order)
	}
	return Alias(domain)
}

// Ordinal returns the 1-based ordinal for a domain, or 0 if unseen.
func (p *ParticipantRegistry) Ordinal(domain string) int {
	return p.ordinals[domain]
}

// Len returns the number of registered domains.
func (p *ParticipantRegistry) Len() int { return len(p.order) }

// Domains returns the registered domains in first-seen order.
func (p *ParticipantRegistry) Domains() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Entries returns the registry as ordered (domain, ordinal) pairs.
func (p *ParticipantRegistry) Entries() []RegistryEntry {
	out := make([]RegistryEntry, 0, len(p.order))
	for _, d := range p.order {
		out = append(out, RegistryEntry{Domain: d, Ordinal: p.ordinals[d]})
	}
	return out
}

// Restore replaces the registry contents with previously serialized entries.
func (p *ParticipantRegistry) Restore(entries []RegistryEntry) {
	p.order = p.order[:0]
	p.ordinals = make(map[string]int, len(entries))
	for _, e := range entries {
		if _, ok := p.ordinals[e.Domain]; ok {
			continue
		}
		p.order = append(p.order, e.Domain)
		p.ordinals[e.Domain] = e.Ordinal
	}
}

// Reset removes every entry.
func (p *ParticipantRegistry) Reset() {
	p.order = nil
	p.ordinals = make(map[string]int)
}
