package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"time"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/parse"
)

// Workflow endpoints, relative to the portal base URL.
const (
	pathEmbedded         = "/Scheduling/Embedded"
	pathInitWorkflow     = "/Scheduling/Embedded/ReloadSchedulingWorkflowData"
	pathEvaluateLocation = "/Scheduling/Embedded/EvaluatePatientLocationRule"
	pathGetSlots         = "/Scheduling/Embedded/GetSlots"
)

var widgetHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`__widgetheader["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`WidgetHeader["']?\s*[:=]\s*["']([^"']+)["']`),
}

var workflowTokenRe = regexp.MustCompile(`WP-[A-Za-z0-9_-]+`)

// extractWidgetHeader pulls the session state token out of a response
// body, which may be JSON or HTML/JS depending on the step.
func extractWidgetHeader(body string) string {
	var data map[string]any
	if err := json.Unmarshal([]byte(body), &data); err == nil {
		for _, key := range []string{"WidgetHeader", "__widgetheader"} {
			if s, ok := data[key].(string); ok && s != "" {
				return s
			}
		}
	}
	for _, re := range widgetHeaderPatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractWorkflowTokens returns the distinct WP- opaque tokens found
// in a response body.
func extractWorkflowTokens(body string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range workflowTokenRe.FindAllString(body, -1) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Client runs the portal workflow and returns the raw GetSlots
// response for normalization.
type Client struct {
	cfg     config.PortalConfig
	dates   parse.DateCodec
	session *session
	now     func() time.Time
}

// NewClient creates a portal client. The date codec encodes the slot
// search start date the way the portal expects.
func NewClient(cfg config.PortalConfig, dates parse.DateCodec) *Client {
	return &Client{
		cfg:     cfg,
		dates:   dates,
		session: newSession(cfg),
		now:     time.Now,
	}
}

// Fetch executes the full workflow and returns the decoded GetSlots
// payload plus the raw response bytes. The intermediate steps are
// best-effort: the portal sometimes lets a session straight through to
// GetSlots, so their failures are logged, not fatal. A GetSlots
// failure is a cycle failure.
func (c *Client) Fetch(ctx context.Context) (any, json.RawMessage, error) {
	if err := c.loadEmbeddedPage(ctx); err != nil {
		return nil, nil, err
	}
	if err := c.initializeWorkflow(ctx); err != nil {
		log.Printf("portal: workflow init issue (continuing): %v", err)
	}
	if err := c.validateLocation(ctx); err != nil {
		log.Printf("portal: location validation issue (continuing): %v", err)
	}
	return c.getSlots(ctx, c.now())
}

// loadEmbeddedPage establishes cookies and the initial widget header.
func (c *Client) loadEmbeddedPage(ctx context.Context) error {
	path := fmt.Sprintf("%s?dept=%s&vt=%s", pathEmbedded, c.cfg.DepartmentIDs, c.cfg.VisitType)
	resp, err := c.session.get(ctx, path, c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("load embedded page: %w", err)
	}

	body := resp.String()
	c.session.refreshWidgetHeader(body)
	if tokens := extractWorkflowTokens(body); len(tokens) > 0 {
		log.Printf("portal: found %d workflow tokens in embedded page", len(tokens))
	}
	return nil
}

func (c *Client) initializeWorkflow(ctx context.Context) error {
	form := map[string]string{
		"widgetid":              c.cfg.WidgetID,
		"dept":                  c.cfg.DepartmentIDs,
		"vt":                    c.cfg.VisitType,
		"reasonforvisit":        c.cfg.ReasonForVisit,
		"IsAnonymous":           "true",
		"IsAuthenticatedWidget": "false",
	}
	resp, err := c.session.postForm(ctx, pathInitWorkflow, form)
	if err != nil {
		return fmt.Errorf("initialize workflow: %w", err)
	}
	c.session.refreshWidgetHeader(resp.String())
	return nil
}

func (c *Client) validateLocation(ctx context.Context) error {
	form := map[string]string{
		"workflow.Type":        "12",
		"workflow.IsAnonymous": "true",
	}
	resp, err := c.session.postForm(ctx, pathEvaluateLocation, form)
	if err != nil {
		return fmt.Errorf("validate location: %w", err)
	}
	c.session.refreshWidgetHeader(resp.String())
	return nil
}

func (c *Client) getSlots(ctx context.Context, startDate time.Time) (any, json.RawMessage, error) {
	offset, err := c.dates.DateToOffset(startDate.Format("2006-01-02"))
	if err != nil {
		return nil, nil, fmt.Errorf("encode start date: %w", err)
	}
	log.Printf("portal: requesting slots from %s (day offset %d)", startDate.Format("2006-01-02"), offset)

	form := map[string]string{
		"workflow.Type":                            "12",
		"workflow.IsAnonymous":                     "true",
		"workflow.IsAuthenticatedWidget":           "false",
		"workflow.SchedulingControllerParams.dept": c.cfg.DepartmentIDs,
		"workflow.SchedulingControllerParams.vt":   c.cfg.VisitType,
		"startDte":                                 fmt.Sprintf("%d", offset),
	}
	resp, err := c.session.postForm(ctx, pathGetSlots, form)
	if err != nil {
		return nil, nil, fmt.Errorf("get slots: %w", err)
	}

	raw := resp.Body()
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("get slots: response is not JSON: %w", err)
	}
	return payload, json.RawMessage(raw), nil
}
