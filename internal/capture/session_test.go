package capture

import (
	"fmt"
	"testing"
	"time"
)

type fakeNotifier struct {
	actions []string
	records []RequestRecord
}

func (f *fakeNotifier) Publish(action string, rec RequestRecord) {
	f.actions = append(f.actions, action)
	f.records = append(f.records, rec)
}

func testTime(offsetMS int64) time.Time {
	return time.UnixMilli(1700000000000 + offsetMS)
}

func TestCreateAssignsStrictlyIncreasingIDs(t *testing.T) {
	s := NewSession(nil)

	var prev int64
	for i := 0; i < 20; i++ {
		rec, ok := s.Create("GET", fmt.Sprintf("https://example.com/p/%d", i), "xmlhttprequest", 1, testTime(int64(i)))
		if !ok {
			t.Fatalf("create %d dropped", i)
		}
		if rec.ID <= prev {
			t.Fatalf("id %d not greater than previous %d", rec.ID, prev)
		}
		prev = rec.ID
	}
}

func TestCreateDropsSelfOrigin(t *testing.T) {
	s := NewSession(nil)

	if _, ok := s.Create("GET", "chrome-extension://abcdef/popup.html", "other", 1, testTime(0)); ok {
		t.Error("self-origin request was recorded")
	}
	if _, ok := s.Create("GET", "moz-extension://abcdef/popup.html", "other", 1, testTime(0)); ok {
		t.Error("moz self-origin request was recorded")
	}
	if n, _ := s.Counts(); n != 0 {
		t.Errorf("ledger has %d records, want 0", n)
	}
}

func TestCreateDerivesDomainAndRegisters(t *testing.T) {
	s := NewSession(nil)

	rec, ok := s.Create("GET", "https://api.example.com:8443/users?q=1", "xmlhttprequest", 1, testTime(0))
	if !ok {
		t.Fatal("create dropped")
	}
	if rec.Domain != "api.example.com" {
		t.Errorf("domain = %q, want api.example.com", rec.Domain)
	}
	if _, domains := s.Counts(); domains != 1 {
		t.Errorf("domain count = %d, want 1", domains)
	}
}

func TestCompleteMarksTerminalOnce(t *testing.T) {
	s := NewSession(nil)

	s.Create("GET", "https://api.example.com/users", "xmlhttprequest", 1, testTime(0))

	rec, ok := s.Complete("https://api.example.com/users", 1, 200, testTime(120))
	if !ok {
		t.Fatal("complete did not match")
	}
	if !rec.Completed || rec.StatusCode != 200 {
		t.Errorf("record = %+v, want completed with status 200", rec)
	}
	if rec.ResponseTime != 120 {
		t.Errorf("responseTime = %d, want 120", rec.ResponseTime)
	}

	// Second terminal transition must find no match.
	if _, ok := s.Complete("https://api.example.com/users", 1, 304, testTime(200)); ok {
		t.Error("already-terminal record matched again")
	}
	if _, ok := s.Redirect("https://api.example.com/users", 1, 301, "https://b.example.com/", testTime(200)); ok {
		t.Error("already-terminal record matched for redirect")
	}
	if _, ok := s.Fail("https://api.example.com/users", 1, "net::ERR_FAILED", testTime(200)); ok {
		t.Error("already-terminal record matched for error")
	}
}

func TestCorrelationPicksFirstPendingMatch(t *testing.T) {
	s := NewSession(nil)

	first, _ := s.Create("GET", "https://api.example.com/poll", "xmlhttprequest", 7, testTime(0))
	second, _ := s.Create("GET", "https://api.example.com/poll", "xmlhttprequest", 7, testTime(5))

	got, ok := s.Complete("https://api.example.com/poll", 7, 200, testTime(50))
	if !ok || got.ID != first.ID {
		t.Fatalf("first completion matched id %d, want %d", got.ID, first.ID)
	}

	got, ok = s.Complete("https://api.example.com/poll", 7, 201, testTime(60))
	if !ok || got.ID != second.ID {
		t.Fatalf("second completion matched id %d, want %d", got.ID, second.ID)
	}
}

func TestCorrelationRequiresSameTab(t *testing.T) {
	s := NewSession(nil)
	s.Create("GET", "https://api.example.com/users", "xmlhttprequest", 1, testTime(0))

	if _, ok := s.Complete("https://api.example.com/users", 2, 200, testTime(10)); ok {
		t.Error("completion on a different tab matched")
	}
}

func TestRedirectSetsTarget(t *testing.T) {
	s := NewSession(nil)
	s.Create("GET", "http://example.com/", "main_frame", 1, testTime(0))

	rec, ok := s.Redirect("http://example.com/", 1, 301, "https://example.com/", testTime(30))
	if !ok {
		t.Fatal("redirect did not match")
	}
	if !rec.Completed || rec.RedirectURL != "https://example.com/" || rec.StatusCode != 301 {
		t.Errorf("record = %+v, want terminal redirect to https://example.com/", rec)
	}
}

func TestFailSetsErrorReason(t *testing.T) {
	s := NewSession(nil)
	s.Create("GET", "https://down.example.com/api", "xmlhttprequest", 1, testTime(0))

	rec, ok := s.Fail("https://down.example.com/api", 1, "net::ERR_CONNECTION_RESET", testTime(40))
	if !ok {
		t.Fatal("fail did not match")
	}
	if !rec.Completed || rec.Error != "net::ERR_CONNECTION_RESET" {
		t.Errorf("record = %+v, want terminal with error reason", rec)
	}
	if rec.StatusCode != 0 {
		t.Errorf("statusCode = %d, want unset", rec.StatusCode)
	}
}

func TestResetClearsEverythingAndRestartsIDs(t *testing.T) {
	s := NewSession(nil)
	s.Create("GET", "https://a.example.com/", "main_frame", 1, testTime(0))
	s.Create("GET", "https://b.example.com/", "main_frame", 1, testTime(1))

	s.Reset()

	reqs, domains := s.Counts()
	if reqs != 0 || domains != 0 {
		t.Errorf("counts after reset = (%d, %d), want (0, 0)", reqs, domains)
	}

	rec, ok := s.Create("GET", "https://c.example.com/", "main_frame", 1, testTime(2))
	if !ok || rec.ID != 1 {
		t.Errorf("first id after reset = %d, want 1", rec.ID)
	}
}

func TestNotificationAsymmetry(t *testing.T) {
	n := &fakeNotifier{}
	s := NewSession(nil)
	s.SetNotifier(n)

	s.Create("GET", "https://a.example.com/x", "xmlhttprequest", 1, testTime(0))
	s.Complete("https://a.example.com/x", 1, 200, testTime(10))
	s.Create("GET", "https://a.example.com/y", "xmlhttprequest", 1, testTime(20))
	s.Redirect("https://a.example.com/y", 1, 302, "https://b.example.com/", testTime(30))
	s.Create("GET", "https://a.example.com/z", "xmlhttprequest", 1, testTime(40))
	s.Fail("https://a.example.com/z", 1, "net::ERR_FAILED", testTime(50))

	want := []string{
		ActionRequestAdded,
		ActionRequestCompleted,
		ActionRequestAdded,
		ActionRequestAdded,
	}
	if len(n.actions) != len(want) {
		t.Fatalf("published %v, want %v", n.actions, want)
	}
	for i, a := range want {
		if n.actions[i] != a {
			t.Errorf("action[%d] = %q, want %q", i, n.actions[i], a)
		}
	}
}

func TestHydrateResumesCounterFromMaxID(t *testing.T) {
	s := NewSession(nil)
	s.Hydrate([]RequestRecord{
		{ID: 3, Method: "GET", URL: "https://a.example.com/", Domain: "a.example.com", Timestamp: 10, TabID: 1, Completed: true, StatusCode: 200},
		{ID: 7, Method: "GET", URL: "https://b.example.com/", Domain: "b.example.com", Timestamp: 20, TabID: 1},
	}, []RegistryEntry{
		{Domain: "a.example.com", Ordinal: 1},
		{Domain: "b.example.com", Ordinal: 2},
	})

	reqs, domains := s.Counts()
	if reqs != 2 || domains != 2 {
		t.Fatalf("counts = (%d, %d), want (2, 2)", reqs, domains)
	}

	rec, ok := s.Create("GET", "https://c.example.com/", "main_frame", 1, testTime(0))
	if !ok || rec.ID != 8 {
		t.Errorf("next id after hydrate = %d, want 8", rec.ID)
	}

	// Hydrated pending records stay correlatable.
	if _, ok := s.Complete("https://b.example.com/", 1, 200, testTime(0)); !ok {
		t.Error("hydrated pending record did not match completion")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSession(nil)
	s.Create("GET", "https://a.example.com/", "main_frame", 1, testTime(0))

	snap := s.Snapshot()
	snap[0].Method = "MUTATED"

	fresh := s.Snapshot()
	if fresh[0].Method != "GET" {
		t.Error("snapshot mutation leaked into the ledger")
	}
}
