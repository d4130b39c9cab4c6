// Package contenttype maps raw WebRequest resource-type tags to semantic
// content categories.
package contenttype

import (
	"regexp"
	"strings"
)

// Category is a semantic content category used for filtering and labeling.
type Category string

// The closed set of categories. Classify never returns anything else.
const (
	Document  Category = "document"
	CSS       Category = "css"
	JS        Category = "js"
	Image     Category = "image"
	Font      Category = "font"
	XHR       Category = "xhr"
	WebSocket Category = "websocket"
	Media     Category = "media"
	Other     Category = "other"
	Unknown   Category = "unknown"
)

// All lists every category in the order the viewer presents them.
var All = []Category{XHR, Document, CSS, JS, Font, Image, Media, WebSocket, Other, Unknown}

var (
	imageExtRe = regexp.MustCompile(`\.(png|jpg|jpeg|gif|svg|webp)(\?|$)`)
	fontExtRe  = regexp.MustCompile(`\.(woff|woff2|ttf|eot)(\?|$)`)
)

// Classify maps a resource-type tag to a Category. For the generic "other"
// tag the URL suffix is consulted before giving up.
func Classify(resourceType, url string) Category {
	switch resourceType {
	case "main_frame", "sub_frame":
		return Document
	case "stylesheet":
		return CSS
	case "script":
		return JS
	case "image":
		return Image
	case "font":
		return Font
	case "xmlhttprequest":
		return XHR
	case "websocket":
		return WebSocket
	case "media":
		return Media
	case "other":
		return fromURL(url)
	default:
		return Unknown
	}
}

func fromURL(url string) Category {
	u := strings.ToLower(url)
	if strings.Contains(u, ".css") {
		return CSS
	}
	if strings.Contains(u, ".js") {
		return JS
	}
	if imageExtRe.MatchString(u) {
		return Image
	}
	if fontExtRe.MatchString(u) {
		return Font
	}
	return Other
}

// Valid reports whether s names one of the fixed categories.
func Valid(s string) bool {
	for _, c := range All {
		if string(c) == s {
			return true
		}
	}
	return false
}
