// Package pagescan extracts slot records from a rendered scheduling
// page. This is the fallback for when the workflow API is unusable:
// the page text is matched against the widget's "8:30 AM\non Wednesday
// August 5, 2026 at <location> with <provider>." phrasing. Best effort
// only; a reshaped page yields zero records, not an error.
package pagescan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"slotwatch-backend/config"
)

var (
	slotLineRe = regexp.MustCompile(`(?im)(\d{1,2}:\d{2}\s*(?:AM|PM))\s*\non\s+(\w+)\s+(\w+)\s+(\d{1,2}),\s*(\d{4})\s+at\s+([^.]+?)\s+with\s+([^.]+)\.`)
	noSlotsRe  = regexp.MustCompile(`(?i)no available times`)
)

// Source fetches the rendered availability page and emits raw records
// in the shape the normalizer consumes.
type Source struct {
	client  *resty.Client
	pageURL string
}

// NewSource creates a page-scan source for the configured page URL.
func NewSource(cfg config.PortalConfig) *Source {
	client := resty.New().SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Source{client: client, pageURL: cfg.PageURL}
}

// Fetch downloads the page and returns an untyped payload holding the
// extracted raw records, plus the payload re-encoded as JSON for the
// snapshot's debug field.
func (s *Source) Fetch(ctx context.Context) (any, json.RawMessage, error) {
	if s.pageURL == "" {
		return nil, nil, fmt.Errorf("pagescan: portal.page_url is not configured")
	}

	resp, err := s.client.R().SetContext(ctx).Get(s.pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("pagescan: fetch %s: %w", s.pageURL, err)
	}
	if resp.StatusCode() != 200 {
		return nil, nil, fmt.Errorf("pagescan: fetch %s: unexpected status %d", s.pageURL, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, nil, fmt.Errorf("pagescan: parse page: %w", err)
	}

	records := Extract(doc)
	payload := map[string]any{"Slots": records}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("pagescan: encode records: %w", err)
	}
	return payload, raw, nil
}

// Extract pulls raw slot records out of a parsed page. Duplicate
// (date, time, provider) lines collapse to one record; the normalizer
// and reconciler handle identity from there.
func Extract(doc *goquery.Document) []any {
	body := doc.Find("main, #scheduling-workflow-container").First()
	if body.Length() == 0 {
		body = doc.Find("body")
	}
	text := body.Text()

	if noSlotsRe.MatchString(text) {
		log.Printf("pagescan: page reports no available times")
		return []any{}
	}

	matches := slotLineRe.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{})
	records := make([]any, 0, len(matches))
	for _, m := range matches {
		timeStr := strings.TrimSpace(m[1])
		date := isoFromPageDate(m[3], m[4], m[5])
		if date == "" {
			continue
		}
		dedupeKey := date + "|" + timeStr + "|" + m[7]
		if _, dup := seen[dedupeKey]; dup {
			continue
		}
		seen[dedupeKey] = struct{}{}

		records = append(records, map[string]any{
			"date":       date,
			"time":       timeStr,
			"Provider":   strings.TrimSpace(m[7]),
			"Department": strings.TrimSpace(m[6]),
		})
	}

	log.Printf("pagescan: extracted %d slot records from page", len(records))
	return records
}

// isoFromPageDate converts the page's "August 5, 2026" wording into an
// ISO date string, or "" when the wording is unparseable.
func isoFromPageDate(month, day, year string) string {
	t, err := time.Parse("January 2, 2006", fmt.Sprintf("%s %s, %s", month, day, year))
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}
