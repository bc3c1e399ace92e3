package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// ReviewItem maps one threaded segment message to its index in the run.
type ReviewItem struct {
	TS  string
	Idx int
}

// ReviewThread records the Slack timestamps of a posted review so reactions
// can be routed back to the right segments.
type ReviewThread struct {
	HeaderTS string
	Items    []ReviewItem
}

// PostReviewThread posts a header message for an analysis run plus one
// threaded reply per segment, so reviewers can react to each candidate
// individually. Returns the header timestamp and per-segment reply
// timestamps. titles may be nil or shorter than segments; missing entries
// post without a title.
func (p *Poster) PostReviewThread(ctx context.Context, vodID, title, profile string, segments []engine.Segment, titles []string) (*ReviewThread, error) {
	headerText := formatHeaderMessage(vodID, title, profile, len(segments))

	headerTS, err := p.post(ctx, map[string]any{
		"channel": p.channel,
		"text":    headerText,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": headerText,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "React on a clip: :+1: keep | :-1: discard | :fast_forward: skip",
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("post header: %w", err)
	}

	thread := &ReviewThread{HeaderTS: headerTS}
	for i, seg := range segments {
		var segTitle string
		if i < len(titles) {
			segTitle = titles[i]
		}
		ts, err := p.post(ctx, map[string]any{
			"channel":   p.channel,
			"thread_ts": headerTS,
			"text":      formatSegmentMessage(seg, segTitle),
		})
		if err != nil {
			p.logger.Error("failed to post segment message", "rank", seg.Rank, "error", err)
			continue
		}
		thread.Items = append(thread.Items, ReviewItem{TS: ts, Idx: i})
	}

	p.logger.Info("posted review thread", "ts", headerTS, "vod_id", vodID, "segments", len(thread.Items))
	return thread, nil
}

// PostThread posts a threaded reply to a message. An empty threadTS posts a
// standalone message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	payload := map[string]any{
		"channel": p.channel,
		"text":    text,
	}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	_, err := p.post(ctx, payload)
	return err
}

// post sends one chat.postMessage call and returns the message timestamp.
func (p *Poster) post(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	return slackResp.TS, nil
}

func formatHeaderMessage(vodID, title, profile string, count int) string {
	var sb strings.Builder

	if title == "" {
		title = vodID
	}
	fmt.Fprintf(&sb, "*VOD:* %s (`%s`)\n", title, vodID)
	fmt.Fprintf(&sb, "*Profile:* %s\n", profile)
	fmt.Fprintf(&sb, "*Candidates:* %d\n", count)

	if count == 0 {
		sb.WriteString("_No interest segments selected for this VOD._")
	}

	return sb.String()
}

func formatSegmentMessage(seg engine.Segment, title string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*#%d* `%s - %s` (%s)\n", seg.Rank, msClock(seg.StartMS), msClock(seg.EndMS), msSpan(seg.DurationMS()))
	if title != "" {
		fmt.Fprintf(&sb, "_%s_\n", title)
	}
	fmt.Fprintf(&sb, "Score: %.2f", seg.Score)
	if !seg.Refined {
		sb.WriteString(" | unrefined window bounds")
	}

	return sb.String()
}

// msClock renders a millisecond offset as h:mm:ss for Slack messages.
func msClock(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func msSpan(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Truncate(time.Second).String()
}
