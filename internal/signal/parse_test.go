package signal

import "testing"

func TestParseTranscriptBareArray(t *testing.T) {
	data := []byte(`[
		{"start_ms": 1000, "end_ms": 1400, "text": "hello", "confidence": 0.92},
		{"start_ms": 1500, "end_ms": 1900, "text": "chat", "confidence": 0.81}
	]`)

	words, err := ParseTranscript(data)
	if err != nil {
		t.Fatalf("ParseTranscript failed: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].Text != "hello" || words[0].StartMS != 1000 {
		t.Errorf("unexpected first word: %+v", words[0])
	}
	if words[1].Confidence != 0.81 {
		t.Errorf("expected confidence 0.81, got %f", words[1].Confidence)
	}
}

func TestParseTranscriptWrapped(t *testing.T) {
	data := []byte(`{"words": [{"start_ms": 0, "end_ms": 500, "text": "hi", "confidence": 1}]}`)

	words, err := ParseTranscript(data)
	if err != nil {
		t.Fatalf("ParseTranscript failed: %v", err)
	}
	if len(words) != 1 || words[0].Text != "hi" {
		t.Fatalf("unexpected words: %+v", words)
	}
}

func TestParseTranscriptMalformed(t *testing.T) {
	if _, err := ParseTranscript([]byte(`{not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestParseChatShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"bare array", `[{"timestamp_ms": 100, "author": "a", "text": "hey"}]`, 1},
		{"wrapped", `{"messages": [{"timestamp_ms": 100, "author": "a", "text": "hey"}, {"timestamp_ms": 200, "author": "b", "text": "ho"}]}`, 2},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := ParseChat([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseChat failed: %v", err)
			}
			if len(events) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(events))
			}
		})
	}
}

func TestParseChatEmotes(t *testing.T) {
	data := []byte(`[{"timestamp_ms": 100, "author": "a", "text": "lol", "emotes": ["kappa", "pog"]}]`)

	events, err := ParseChat(data)
	if err != nil {
		t.Fatalf("ParseChat failed: %v", err)
	}
	if len(events[0].Emotes) != 2 {
		t.Errorf("expected 2 emotes, got %d", len(events[0].Emotes))
	}
}

func TestParseActivityExplicitFlag(t *testing.T) {
	data := []byte(`[
		{"frame_time_ms": 0, "is_active": true},
		{"frame_time_ms": 1000, "is_active": false, "score": 0.9}
	]`)

	frames, err := ParseActivity(data)
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if !frames[0].Active {
		t.Error("expected frame 0 active")
	}
	// Explicit is_active wins over the score.
	if frames[1].Active {
		t.Error("expected frame 1 inactive despite high score")
	}
	if frames[1].Score != 0.9 {
		t.Errorf("expected score 0.9, got %f", frames[1].Score)
	}
}

func TestParseActivityScoreOnly(t *testing.T) {
	data := []byte(`{"frames": [
		{"frame_time_ms": 0, "score": 0.7},
		{"frame_time_ms": 1000, "score": 0.2}
	]}`)

	frames, err := ParseActivity(data)
	if err != nil {
		t.Fatalf("ParseActivity failed: %v", err)
	}
	if !frames[0].Active {
		t.Error("expected score 0.7 to derive active")
	}
	if frames[1].Active {
		t.Error("expected score 0.2 to derive inactive")
	}
}

func TestParseEmotionShapes(t *testing.T) {
	samples, err := ParseEmotion([]byte(`{"samples": [{"start_ms": 0, "end_ms": 2000, "score": 0.8}]}`))
	if err != nil {
		t.Fatalf("ParseEmotion failed: %v", err)
	}
	if len(samples) != 1 || samples[0].Score != 0.8 {
		t.Fatalf("unexpected samples: %+v", samples)
	}
}
