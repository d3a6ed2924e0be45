package schema

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
			ok:    true,
		},
		{
			name:  "prose around object",
			input: "Sure! Here is your JSON:\n{\"a\": 1}\nHope that helps.",
			want:  `{"a": 1}`,
			ok:    true,
		},
		{
			name:  "markdown fenced",
			input: "```json\n{\"points\": [\"x\"]}\n```",
			want:  `{"points": ["x"]}`,
			ok:    true,
		},
		{
			name:  "nested objects",
			input: `prefix {"a":{"b":{"c":1}},"d":2} suffix`,
			want:  `{"a":{"b":{"c":1}},"d":2}`,
			ok:    true,
		},
		{
			name:  "braces inside strings",
			input: `{"text":"use {curly} braces and a \" quote"}`,
			want:  `{"text":"use {curly} braces and a \" quote"}`,
			ok:    true,
		},
		{
			name:  "unbalanced",
			input: `{"a": {"b": 1}`,
			ok:    false,
		},
		{
			name:  "no object",
			input: "I cannot produce JSON for that request.",
			ok:    false,
		},
		{
			name:  "empty input",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSONObject(tt.input)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractJSONObjectReturnsFirst(t *testing.T) {
	got, ok := ExtractJSONObject(`{"first":1} and then {"second":2}`)
	if !ok || got != `{"first":1}` {
		t.Errorf("expected first object, got %q (ok=%v)", got, ok)
	}
}
