package contenttype

import "testing"

func TestClassifyKnownTags(t *testing.T) {
	cases := []struct {
		resourceType string
		want         Category
	}{
		{"main_frame", Document},
		{"sub_frame", Document},
		{"stylesheet", CSS},
		{"script", JS},
		{"image", Image},
		{"font", Font},
		{"xmlhttprequest", XHR},
		{"websocket", WebSocket},
		{"media", Media},
	}

	for _, c := range cases {
		got := Classify(c.resourceType, "https://example.com/x")
		if got != c.want {
			t.Errorf("Classify(%q) = %q, want %q", c.resourceType, got, c.want)
		}
	}
}

func TestClassifyOtherFallsBackToURL(t *testing.T) {
	cases := []struct {
		url  string
		want Category
	}{
		{"https://cdn.example.com/app.css", CSS},
		{"https://cdn.example.com/bundle.js?v=3", JS},
		{"https://cdn.example.com/logo.png", Image},
		{"https://cdn.example.com/photo.jpeg?w=100", Image},
		{"https://cdn.example.com/icon.svg", Image},
		{"https://cdn.example.com/face.woff2", Font},
		{"https://cdn.example.com/face.ttf?x", Font},
		{"https://cdn.example.com/data.bin", Other},
		{"https://cdn.example.com/", Other},
	}

	for _, c := range cases {
		got := Classify("other", c.url)
		if got != c.want {
			t.Errorf("Classify(other, %q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestClassifyUnrecognizedTag(t *testing.T) {
	for _, tag := range []string{"", "ping", "csp_report", "object", "garbage"} {
		if got := Classify(tag, "https://example.com/x.css"); got != Unknown {
			t.Errorf("Classify(%q) = %q, want unknown", tag, got)
		}
	}
}

// Every input lands inside the fixed category set.
func TestClassifyTotal(t *testing.T) {
	tags := []string{"main_frame", "sub_frame", "stylesheet", "script", "image",
		"font", "xmlhttprequest", "websocket", "media", "other", "beacon", "", "???"}
	urls := []string{"https://a.example/x.css", "https://a.example/", "not a url", ""}

	for _, tag := range tags {
		for _, u := range urls {
			got := Classify(tag, u)
			if !Valid(string(got)) {
				t.Errorf("Classify(%q, %q) = %q, outside category set", tag, u, got)
			}
		}
	}
}
