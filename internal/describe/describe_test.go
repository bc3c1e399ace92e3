package describe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/anderson/internal/engine"
	"github.com/MikeSquared-Agency/anderson/internal/signal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// titleServer answers every completion with text and captures the last user
// prompt it saw.
func titleServer(t *testing.T, text string, prompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if prompt != nil && len(req.Messages) == 1 {
			*prompt = req.Messages[0].Content
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": text}},
			"stop_reason": "end_turn",
		})
	}))
}

func testMeta() signal.Meta {
	return signal.Meta{VODID: "vod-123", Title: "ranked grind", DurationMS: 300000}
}

func testWords() []signal.Word {
	return []signal.Word{
		{StartMS: 59000, EndMS: 60000, Text: "okay", Confidence: 0.9},
		{StartMS: 61000, EndMS: 61400, Text: "last", Confidence: 0.9},
		{StartMS: 61500, EndMS: 62000, Text: "round", Confidence: 0.9},
		{StartMS: 89500, EndMS: 90500, Text: "ace", Confidence: 0.9},
		{StartMS: 120000, EndMS: 120500, Text: "chat", Confidence: 0.9},
	}
}

func testSegments() []engine.Segment {
	return []engine.Segment{
		{StartMS: 60000, EndMS: 90000, Score: 0.91, Rank: 1, WindowIDs: []int{2, 3}, Refined: true},
		{StartMS: 120000, EndMS: 150000, Score: 0.74, Rank: 2, WindowIDs: []int{4}, Refined: true},
	}
}

func TestTitleSegments_Success(t *testing.T) {
	var prompt string
	server := titleServer(t, `["Last round ace","Chat goes quiet"]`, &prompt)
	defer server.Close()

	llm := NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	d := New(llm, discardLogger())
	titles, err := d.TitleSegments(context.Background(), testMeta(), testSegments(), testWords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(titles) != 2 {
		t.Fatalf("expected 2 titles, got %d", len(titles))
	}
	if titles[0] != "Last round ace" {
		t.Errorf("expected first title 'Last round ace', got %q", titles[0])
	}
	if titles[1] != "Chat goes quiet" {
		t.Errorf("expected second title 'Chat goes quiet', got %q", titles[1])
	}

	if !strings.Contains(prompt, "Title the following 2 segments") {
		t.Errorf("prompt missing segment count: %q", prompt)
	}
	if !strings.Contains(prompt, "vod-123") {
		t.Errorf("prompt missing VOD id: %q", prompt)
	}
	if !strings.Contains(prompt, "Segment 1 [0:01:00 - 0:01:30]") {
		t.Errorf("prompt missing first segment header: %q", prompt)
	}
	if !strings.Contains(prompt, "last round ace") {
		t.Errorf("prompt missing first segment excerpt: %q", prompt)
	}
	if !strings.Contains(prompt, "Segment 2 [0:02:00 - 0:02:30]") {
		t.Errorf("prompt missing second segment header: %q", prompt)
	}
}

func TestTitleSegments_ParseFailure(t *testing.T) {
	server := titleServer(t, "Here are your titles:\n1. Last round ace", nil)
	defer server.Close()

	llm := NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	d := New(llm, discardLogger())
	titles, err := d.TitleSegments(context.Background(), testMeta(), testSegments(), testWords())
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if titles != nil {
		t.Errorf("expected nil titles on parse failure, got %v", titles)
	}
}

func TestTitleSegments_CountMismatch(t *testing.T) {
	server := titleServer(t, `["only one"]`, nil)
	defer server.Close()

	llm := NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	d := New(llm, discardLogger())
	_, err := d.TitleSegments(context.Background(), testMeta(), testSegments(), testWords())
	if err == nil {
		t.Fatal("expected error when title count does not match segment count")
	}
}

func TestTitleSegments_NoSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected API call for zero segments")
	}))
	defer server.Close()

	llm := NewClient("test-key", "test-model")
	llm.SetTestTransport(server.URL)

	d := New(llm, discardLogger())
	titles, err := d.TitleSegments(context.Background(), testMeta(), nil, testWords())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if titles != nil {
		t.Errorf("expected nil titles for zero segments, got %v", titles)
	}
}

func TestSegmentBlocks_NoTranscript(t *testing.T) {
	segments := []engine.Segment{{StartMS: 200000, EndMS: 210000}}

	blocks := segmentBlocks(segments, testWords())
	if !strings.Contains(blocks, "(no transcript)") {
		t.Errorf("expected placeholder for silent segment, got %q", blocks)
	}
}

func TestTranscriptExcerpt(t *testing.T) {
	words := testWords()

	tests := []struct {
		name    string
		startMS int64
		endMS   int64
		want    string
	}{
		{"words inside span", 60000, 90000, "last round ace"},
		{"straddling word included", 89000, 95000, "ace"},
		{"word ending at start excluded", 60000, 61000, ""},
		{"word starting at end excluded", 110000, 120000, ""},
		{"no overlap", 250000, 260000, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := transcriptExcerpt(words, tt.startMS, tt.endMS)
			if got != tt.want {
				t.Errorf("transcriptExcerpt(%d, %d) = %q, want %q", tt.startMS, tt.endMS, got, tt.want)
			}
		})
	}
}

func TestTranscriptExcerpt_Cap(t *testing.T) {
	var words []signal.Word
	for i := 0; i < 500; i++ {
		ms := int64(i * 100)
		words = append(words, signal.Word{StartMS: ms, EndMS: ms + 100, Text: fmt.Sprintf("w%03d", i), Confidence: 0.9})
	}

	got := transcriptExcerpt(words, 0, 50000)
	if len(got) < excerptMaxChars {
		t.Errorf("expected excerpt near the cap, got %d chars", len(got))
	}
	// The cap stops between words, so the last word may run slightly past it.
	if len(got) > excerptMaxChars+10 {
		t.Errorf("expected excerpt capped near %d chars, got %d", excerptMaxChars, len(got))
	}
	if strings.Contains(got, "w499") {
		t.Error("expected excerpt to stop before the final word")
	}
}
