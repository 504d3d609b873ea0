// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package canon normalizes provider records into CanonicalArticles with a
// stable fingerprint and collapses duplicates.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// trackingParams are query keys removed from article URLs. Keys starting
// with "utm_" are removed as well.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
	"yclid":   true,
	"msclkid": true,
	"ref":     true,
	"ref_src": true,
	"_ga":     true,
	"_hsenc":  true,
	"_hsmi":   true,
	"ocid":    true,
	"cmpid":   true,
}

// fieldSep separates fingerprint components so ("ab", "c") and ("a", "bc")
// hash differently.
const fieldSep = "\x1f"

// Canonicalize normalizes raw into a CanonicalArticle. It returns false
// when the record has no usable http(s) URL; such records are dropped.
func Canonicalize(raw types.RawArticle) (types.CanonicalArticle, bool) {
	u, ok := CleanURL(raw.URL)
	if !ok {
		return types.CanonicalArticle{}, false
	}

	domain := Domain(u)
	a := types.CanonicalArticle{
		Title:       CollapseSpace(raw.Title),
		Description: PlainText(raw.Description),
		Content:     PlainText(raw.Content),
		URL:         u.String(),
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		SourceName:  CollapseSpace(raw.SourceName),
		Domain:      domain,
		PublishedAt: raw.PublishedAt,
		Provider:    raw.Provider,
	}
	if !a.PublishedAt.IsZero() {
		a.PublishedAt = a.PublishedAt.UTC()
	}
	if a.SourceName == "" {
		a.SourceName = domain
	}
	a.Fingerprint = Fingerprint(domain, u.Path, a.PublishedAt)
	return a, true
}

// CleanURL parses s, drops tracking parameters and the fragment, and
// lowercases scheme and host. It returns false for empty, unparseable,
// non-http(s) or host-less URLs.
func CleanURL(s string) (*url.URL, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, false
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	if u.Hostname() == "" {
		return nil, false
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			if isTracking(key) {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, true
}

func isTracking(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "utm_") || trackingParams[k]
}

// Domain returns the hostname of u without a leading "www.".
func Domain(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// DomainOf parses raw and returns its Domain, or "" when raw is not a URL.
func DomainOf(raw string) string {
	u, ok := CleanURL(raw)
	if !ok {
		return ""
	}
	return Domain(u)
}

// Fingerprint hashes (domain, path, published time). A zero time
// contributes an empty string, so the three components are always hashed.
func Fingerprint(domain, path string, published time.Time) string {
	ts := ""
	if !published.IsZero() {
		ts = published.UTC().Format(time.RFC3339)
	}
	sum := sha256.Sum256([]byte(domain + fieldSep + path + fieldSep + ts))
	return hex.EncodeToString(sum[:])
}

// CanonicalizeAll canonicalizes every record, silently dropping the
// inadmissible ones. The second return value counts the dropped records.
func CanonicalizeAll(raws []types.RawArticle) ([]types.CanonicalArticle, int) {
	out := make([]types.CanonicalArticle, 0, len(raws))
	dropped := 0
	for _, r := range raws {
		a, ok := Canonicalize(r)
		if !ok {
			dropped++
			continue
		}
		out = append(out, a)
	}
	return out, dropped
}
