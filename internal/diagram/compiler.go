// Package diagram compiles a ledger snapshot into mermaid sequence-diagram
// source text. Compilation is pure and deterministic: identical inputs yield
// byte-identical output.
package diagram

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/inabajunmr/autosequence/internal/capture"
	"github.com/inabajunmr/autosequence/internal/contenttype"
)

// DefaultMaxEntries caps the number of message pairs in one diagram.
const DefaultMaxEntries = 50

const (
	noteNoRequests = "sequenceDiagram\n    Note over Browser: No requests recorded"
	noteStartHint  = "\n    Note over Browser: Click 'Start' in popup to begin recording"
	noteNoMatch    = "sequenceDiagram\n    Note over Browser: No requests for selected filters"
)

// Filter restricts the compiled records. A nil set means no filtering on that
// axis; an empty non-nil set filters everything out.
type Filter struct {
	Domains map[string]struct{}
	Types   map[contenttype.Category]struct{}
}

// Options tunes compilation.
type Options struct {
	// MaxEntries caps emitted message pairs; 0 means DefaultMaxEntries.
	MaxEntries int
	// StartHint appends a usage note to the empty-ledger diagram.
	StartHint bool
}

// Compile turns a ledger snapshot plus filters into diagram text.
func Compile(records []capture.RequestRecord, filter Filter, opts Options) string {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	if len(records) == 0 {
		if opts.StartHint {
			return noteNoRequests + noteStartHint
		}
		return noteNoRequests
	}

	filtered := make([]capture.RequestRecord, 0, len(records))
	for _, rec := range records {
		if filter.Domains != nil {
			if _, ok := filter.Domains[rec.Domain]; !ok {
				continue
			}
		}
		if filter.Types != nil {
			if _, ok := filter.Types[contenttype.Classify(rec.ResourceType, rec.URL)]; !ok {
				continue
			}
		}
		filtered = append(filtered, rec)
	}

	if len(filtered) == 0 {
		return noteNoMatch
	}

	var b strings.Builder
	b.WriteString("sequenceDiagram\n")
	b.WriteString("    participant Browser\n")

	seen := make(map[string]struct{})
	domains := make([]string, 0)
	for _, rec := range filtered {
		if _, ok := seen[rec.Domain]; !ok {
			seen[rec.Domain] = struct{}{}
			domains = append(domains, rec.Domain)
		}
	}
	sort.Strings(domains)
	for _, d := range domains {
		fmt.Fprintf(&b, "    participant %s as %s\n", capture.Alias(d), d)
	}
	b.WriteString("\n")

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp < filtered[j].Timestamp
	})

	shown := filtered
	if len(shown) > maxEntries {
		shown = shown[:maxEntries]
	}

	for _, rec := range shown {
		alias := capture.Alias(rec.Domain)
		category := contenttype.Classify(rec.ResourceType, rec.URL)
		fmt.Fprintf(&b, "    Browser->>+%s: %s %s [%s]\n", alias, rec.Method, requestPath(rec.URL), category)
		if rec.Completed {
			fmt.Fprintf(&b, "    %s-->>-Browser: %s\n", alias, responseLabel(rec))
		}
	}

	if len(filtered) > maxEntries {
		fmt.Fprintf(&b, "    Note over Browser: ... (%d more requests)\n", len(filtered)-maxEntries)
	}

	return b.String()
}

func requestPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// responseLabel derives the response-arrow text. Error reasons take
// precedence over status and redirect wording.
func responseLabel(rec capture.RequestRecord) string {
	if rec.Error != "" {
		return "Error: " + rec.Error
	}

	label := "pending"
	if rec.StatusCode != 0 {
		label = strconv.Itoa(rec.StatusCode)
	}

	if rec.RedirectURL != "" {
		if u, err := url.Parse(rec.RedirectURL); err == nil && u.Hostname() != "" {
			label += " → " + u.Hostname()
		}
	}
	return label
}
