package engine

import (
	"math"
	"strings"
	"testing"
)

func TestChatSentiment(t *testing.T) {
	tests := []struct {
		name     string
		messages []string
		want     float64
	}{
		{"no messages", nil, 0},
		{"blank text", []string{"", "   "}, 0},
		{"two plain words", []string{"hello there"}, 0.7 * (2.0 / 40.0)},
		{"intensity saturates at forty words", []string{strings.Repeat("go ", 40)}, 0.7},
		{"keyword share saturates at five hits", []string{"wow wow wow wow wow"}, 0.7*(5.0/40.0) + 0.3},
		{"punctuation stripped from keywords", []string{"lol!!!"}, 0.7*(1.0/40.0) + 0.3*(1.0/5.0)},
		{"keywords are case-insensitive", []string{"WTF"}, 0.7*(1.0/40.0) + 0.3*(1.0/5.0)},
		{"split across messages", []string{"that was great", "so funny"}, 0.7*(5.0/40.0) + 0.3*(2.0/5.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chatSentiment(tt.messages)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestChatSentimentStaysInUnitRange(t *testing.T) {
	spam := make([]string, 200)
	for i := range spam {
		spam[i] = "wow amazing lol wtf nice great funny"
	}
	got := chatSentiment(spam)
	if got < 0 || got > 1 {
		t.Fatalf("sentiment %f outside [0, 1]", got)
	}
	if got != 1 {
		t.Errorf("expected saturated sentiment 1, got %f", got)
	}
}
