package capture

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inabajunmr/autosequence/internal/logging"
	"go.uber.org/zap"
)

// DefaultSelfOrigins are URL prefixes treated as the capture tool's own
// network activity and excluded at admission.
var DefaultSelfOrigins = []string{"chrome-extension://", "moz-extension://"}

// Notifier receives ledger change events for live viewers. Delivery is
// best-effort; the ledger never blocks on it.
type Notifier interface {
	Publish(action string, rec RequestRecord)
}

// Persister receives a full snapshot after every ledger mutation. Writes are
// fire-and-forget; the in-memory state stays authoritative.
type Persister interface {
	Persist(records []RequestRecord, domains []RegistryEntry)
}

// Session owns the capture state for one ledger generation: the ordered
// request records, the participant registry, and the id counter. All
// mutations are serialized behind a single mutex so that id monotonicity and
// the single-terminal-transition invariant hold even when the event source
// delivers concurrently.
type Session struct {
	mu          sync.Mutex
	records     []*RequestRecord
	registry    *ParticipantRegistry
	counter     int64
	selfOrigins []string

	notifier  Notifier
	persister Persister
	logger    *zap.Logger
}

// NewSession creates an empty session.
func NewSession(logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		registry:    NewParticipantRegistry(),
		selfOrigins: DefaultSelfOrigins,
		logger:      logger,
	}
}

// SetNotifier attaches the live-update fan-out.
func (s *Session) SetNotifier(n Notifier) { s.notifier = n }

// SetPersister attaches the persistence bridge.
func (s *Session) SetPersister(p Persister) { s.persister = p }

// SetSelfOrigins overrides the URL prefixes excluded as self-origin traffic.
func (s *Session) SetSelfOrigins(prefixes []string) { s.selfOrigins = prefixes }

func (s *Session) selfOrigin(rawURL string) bool {
	for _, prefix := range s.selfOrigins {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}

// Create appends a new pending record for an initiated request. Self-origin
// URLs and URLs with no parseable host are silently dropped. Returns the
// created record and true when one was appended.
func (s *Session) Create(method, rawURL, resourceType string, tabID int, now time.Time) (RequestRecord, bool) {
	if s.selfOrigin(rawURL) {
		return RequestRecord{}, false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		s.logger.Debug("dropping request with unparseable url", logging.URL(rawURL))
		return RequestRecord{}, false
	}
	domain := u.Hostname()

	s.mu.Lock()
	s.registry.Register(domain)
	s.counter++
	rec := &RequestRecord{
		ID:           s.counter,
		Method:       method,
		URL:          rawURL,
		Domain:       domain,
		ResourceType: resourceType,
		Timestamp:    now.UnixMilli(),
		TabID:        tabID,
	}
	s.records = append(s.records, rec)
	snap := *rec
	s.mu.Unlock()

	s.logger.Debug("request recorded",
		logging.RequestID(snap.ID),
		logging.Method(method),
		logging.URL(rawURL),
		logging.Domain(domain),
		logging.TabID(tabID))

	s.persist()
	if s.notifier != nil {
		s.notifier.Publish(ActionRequestAdded, snap)
	}
	return snap, true
}

// matchPending finds the first non-terminal record for (url, tabID) in ledger
// order. Correlation identity is only (url, tabID): the event source exposes
// no request-scoped id, so concurrent identical requests on the same tab are
// disambiguated solely by "not yet terminal". Best-effort, deterministic.
func (s *Session) matchPending(rawURL string, tabID int) *RequestRecord {
	for _, rec := range s.records {
		if rec.URL == rawURL && rec.TabID == tabID && !rec.Terminal() {
			return rec
		}
	}
	return nil
}

// Complete marks the matching pending record completed with a status code.
// Unmatched events are dropped with a diagnostic log.
func (s *Session) Complete(rawURL string, tabID, statusCode int, now time.Time) (RequestRecord, bool) {
	s.mu.Lock()
	rec := s.matchPending(rawURL, tabID)
	if rec == nil {
		s.mu.Unlock()
		s.logger.Debug("no matching request for completion",
			logging.URL(rawURL), logging.TabID(tabID), logging.StatusCode(statusCode))
		return RequestRecord{}, false
	}
	rec.StatusCode = statusCode
	rec.Completed = true
	rec.ResponseTime = now.UnixMilli() - rec.Timestamp
	snap := *rec
	s.mu.Unlock()

	s.persist()
	if s.notifier != nil {
		s.notifier.Publish(ActionRequestCompleted, snap)
	}
	return snap, true
}

// Redirect marks the matching pending record terminal with a redirect target.
// No fan-out event is published for this transition.
func (s *Session) Redirect(rawURL string, tabID, statusCode int, redirectURL string, now time.Time) (RequestRecord, bool) {
	s.mu.Lock()
	rec := s.matchPending(rawURL, tabID)
	if rec == nil {
		s.mu.Unlock()
		s.logger.Debug("no matching request for redirect",
			logging.URL(rawURL), logging.TabID(tabID))
		return RequestRecord{}, false
	}
	rec.StatusCode = statusCode
	rec.RedirectURL = redirectURL
	rec.Completed = true
	rec.ResponseTime = now.UnixMilli() - rec.Timestamp
	snap := *rec
	s.mu.Unlock()

	s.persist()
	return snap, true
}

// Fail marks the matching pending record terminal with an error reason. No
// fan-out event is published for this transition.
func (s *Session) Fail(rawURL string, tabID int, reason string, now time.Time) (RequestRecord, bool) {
	s.mu.Lock()
	rec := s.matchPending(rawURL, tabID)
	if rec == nil {
		s.mu.Unlock()
		s.logger.Debug("no matching request for error",
			logging.URL(rawURL), logging.TabID(tabID))
		return RequestRecord{}, false
	}
	rec.Error = reason
	rec.Completed = true
	rec.ResponseTime = now.UnixMilli() - rec.Timestamp
	snap := *rec
	s.mu.Unlock()

	s.persist()
	return snap, true
}

// Reset clears the ledger, the registry, and the id counter together.
func (s *Session) Reset() {
	s.mu.Lock()
	s.records = nil
	s.registry.Reset()
	s.counter = 0
	s.mu.Unlock()

	s.persist()
}

// Snapshot returns value copies of every record in ledger order, safe to read
// concurrently with mutations.
func (s *Session) Snapshot() []RequestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RequestRecord, len(s.records))
	for i, rec := range s.records {
		out[i] = *rec
	}
	return out
}

// Domains returns the registry contents as ordered pairs.
func (s *Session) Domains() []RegistryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Entries()
}

// Counts returns the request and domain counts.
func (s *Session) Counts() (requests, domains int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), s.registry.Len()
}

// Hydrate restores a previously persisted snapshot. The id counter resumes
// from the highest restored id so ids stay strictly increasing.
func (s *Session) Hydrate(records []RequestRecord, domains []RegistryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]*RequestRecord, 0, len(records))
	s.counter = 0
	for i := range records {
		rec := records[i]
		s.records = append(s.records, &rec)
		if rec.ID > s.counter {
			s.counter = rec.ID
		}
	}
	s.registry.Restore(domains)
}

func (s *Session) persist() {
	if s.persister == nil {
		return
	}
	s.persister.Persist(s.Snapshot(), s.Domains())
}
