package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/model"
)

// GitHubNotifier files an issue on a repository when new slots open.
type GitHubNotifier struct {
	cfg        config.GitHubConfig
	bookingURL string
	client     *resty.Client
	now        func() time.Time
}

// NewGitHubNotifier creates a notifier. bookingURL is included in the
// issue body so a reader can jump straight to the portal.
func NewGitHubNotifier(cfg config.GitHubConfig, bookingURL string) *GitHubNotifier {
	client := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", "2022-11-28").
		SetAuthToken(cfg.Token)

	return &GitHubNotifier{cfg: cfg, bookingURL: bookingURL, client: client, now: time.Now}
}

// Enabled reports whether the notifier has the credentials it needs.
// Missing credentials disable notification rather than failing the
// check cycle.
func (n *GitHubNotifier) Enabled() bool {
	if n.cfg.Repository == "" {
		log.Println("notify: github repository not configured, notifications disabled")
		return false
	}
	if n.cfg.Token == "" {
		log.Println("notify: github token not configured, notifications disabled")
		return false
	}
	return true
}

type issueRequest struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

type issueResponse struct {
	HTMLURL string `json:"html_url"`
}

// NotifyNewSlots creates an issue for the given new slots and returns
// its URL.
func (n *GitHubNotifier) NotifyNewSlots(ctx context.Context, slots []model.Slot) (string, error) {
	if len(slots) == 0 {
		return "", nil
	}

	var issue issueResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(issueRequest{
			Title:  IssueTitle(slots),
			Body:   IssueBody(slots, n.now(), n.bookingURL),
			Labels: []string{n.cfg.Label},
		}).
		SetResult(&issue).
		Post(fmt.Sprintf("/repos/%s/issues", n.cfg.Repository))
	if err != nil {
		return "", fmt.Errorf("create issue: %w", err)
	}
	if resp.StatusCode() != 201 {
		return "", fmt.Errorf("create issue: unexpected status %d: %s", resp.StatusCode(), resp.String())
	}

	log.Printf("notify: created issue %s", issue.HTMLURL)
	return issue.HTMLURL, nil
}

type labelRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// EnsureLabel creates the alert label if the repository does not have
// it yet. Best effort: issue creation works without it, the label just
// arrives unstyled.
func (n *GitHubNotifier) EnsureLabel(ctx context.Context) {
	resp, err := n.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/repos/%s/labels/%s", n.cfg.Repository, n.cfg.Label))
	if err != nil {
		log.Printf("notify: could not check label: %v", err)
		return
	}
	if resp.StatusCode() == 200 {
		return
	}
	if resp.StatusCode() != 404 {
		log.Printf("notify: label lookup returned status %d", resp.StatusCode())
		return
	}

	createResp, err := n.client.R().
		SetContext(ctx).
		SetBody(labelRequest{
			Name:        n.cfg.Label,
			Color:       "d73a4a",
			Description: "New appointment availability",
		}).
		Post(fmt.Sprintf("/repos/%s/labels", n.cfg.Repository))
	if err != nil {
		log.Printf("notify: could not create label: %v", err)
		return
	}
	if createResp.StatusCode() != 201 {
		log.Printf("notify: label creation returned status %d", createResp.StatusCode())
	}
}
