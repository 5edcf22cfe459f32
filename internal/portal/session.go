// Package portal implements the scheduling portal's embedded
// multi-step workflow: load the embedded page, initialize the
// workflow, pass the location rule, then request slots. Tokens that
// carry session state between steps are scraped out of each response.
package portal

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"slotwatch-backend/config"
)

// session wraps a cookie-carrying HTTP client pointed at the portal.
// All requests go through a rate limiter so the checker never hammers
// the upstream, whatever the caller does.
type session struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     config.PortalConfig

	// widgetHeader is the opaque state token the portal threads
	// through the workflow. Refreshed whenever a response carries a
	// new one.
	widgetHeader string
}

func newSession(cfg config.PortalConfig) *session {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)

	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	for k, v := range cfg.Headers {
		client.SetHeader(k, v)
	}

	return &session{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		cfg:     cfg,
	}
}

// referer builds the embedded-page URL the portal expects as the
// Referer on every workflow request.
func (s *session) referer() string {
	params := url.Values{}
	params.Set("dept", s.cfg.DepartmentIDs)
	params.Set("vt", s.cfg.VisitType)
	return s.cfg.BaseURL + "/Scheduling/Embedded?" + params.Encode()
}

func (s *session) get(ctx context.Context, path string, referer string) (*resty.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Referer", referer).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode())
	}
	return resp, nil
}

func (s *session) postForm(ctx context.Context, path string, form map[string]string) (*resty.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if s.widgetHeader != "" {
		form["__widgetheader"] = s.widgetHeader
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Referer", s.referer()).
		SetFormData(form).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode())
	}
	return resp, nil
}

// refreshWidgetHeader updates the session token when a response
// carries a new one.
func (s *session) refreshWidgetHeader(body string) {
	if h := extractWidgetHeader(body); h != "" {
		s.widgetHeader = h
	}
}
