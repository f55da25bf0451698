// Package transcribe talks to the transcription service and maps its
// second-based word timings onto the millisecond-from-zero basis the timeline
// uses.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/balintmendlik/cutroom/internal/timeline"
)

// Word is one transcribed word with timings in seconds, as the service
// reports them.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is a service-level grouping of words.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the full transcription response.
type Result struct {
	Words    []Word    `json:"words"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
	Language string    `json:"language"`
}

// Client calls the transcription service.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

// NewClient creates a Client for the given service base URL.
func NewClient(base, apiKey string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Transcribe submits media bytes and returns word-level timings.
func (c *Client) Transcribe(ctx context.Context, media io.Reader, mimeType, language string) (*Result, error) {
	u := c.base + "/transcriptions"
	if language != "" {
		u += "?language=" + strings.ToLower(language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, media)
	if err != nil {
		return nil, fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return nil, fmt.Errorf("transcribe: status %s: %s", res.Status, strings.TrimSpace(string(body)))
	}

	var result Result
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode transcription: %w", err)
	}
	return &result, nil
}

// ToCaptionWords converts service words to timeline caption words, shifting
// by offset on the master timeline. Words whose timings collapse to an empty
// millisecond range are widened by one millisecond rather than dropped.
func ToCaptionWords(words []Word, offset timeline.Milliseconds) []timeline.CaptionWord {
	out := make([]timeline.CaptionWord, 0, len(words))
	for _, w := range words {
		start := offset + timeline.Milliseconds(math.Floor(w.Start*1000))
		end := offset + timeline.Milliseconds(math.Floor(w.End*1000))
		if end <= start {
			end = start + 1
		}
		out = append(out, timeline.CaptionWord{
			Word:  strings.TrimSpace(w.Word),
			Start: start,
			End:   end,
		})
	}
	return out
}

const defaultWordsPerCaption = 8

// BuildCaptionItems groups caption words into caption track items of at most
// wordsPerCaption words each. Each item's display envelope spans its words.
func BuildCaptionItems(words []timeline.CaptionWord, wordsPerCaption int, newID func() string) []timeline.Item {
	if wordsPerCaption <= 0 {
		wordsPerCaption = defaultWordsPerCaption
	}
	items := make([]timeline.Item, 0, (len(words)+wordsPerCaption-1)/wordsPerCaption)
	for start := 0; start < len(words); start += wordsPerCaption {
		end := start + wordsPerCaption
		if end > len(words) {
			end = len(words)
		}
		group := words[start:end]

		display := timeline.TimeRange{From: group[0].Start, To: group[0].End}
		for _, w := range group {
			if w.Start < display.From {
				display.From = w.Start
			}
			if w.End > display.To {
				display.To = w.End
			}
		}

		items = append(items, timeline.Item{
			ID:      newID(),
			Type:    timeline.TypeCaption,
			Display: display,
			Details: timeline.CaptionDetails{
				Words:      append([]timeline.CaptionWord(nil), group...),
				FontSize:   48,
				FontFamily: "Inter",
				Color:      "#ffffff",
				TextAlign:  "center",
			},
		})
	}
	return items
}
