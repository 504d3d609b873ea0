// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canon

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText reduces an HTML fragment to whitespace-collapsed text. Input
// without markup is only whitespace-collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CollapseSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return CollapseSpace(s)
	}
	doc.Find("script, style, noscript").Remove()
	return CollapseSpace(doc.Text())
}

// CollapseSpace trims s and replaces every whitespace run with one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
