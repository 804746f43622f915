package security

import (
	"testing"
)

func TestRedactor_DefaultPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "openai key",
			input: "key is sk-abcdefghijklmnopqrstuvwxyz",
			want:  "key is " + RedactPlaceholder,
		},
		{
			name:  "anthropic key",
			input: "api: sk-ant-REDACTED",
			want:  "api: " + RedactPlaceholder,
		},
		{
			name:  "github personal access token",
			input: "auth ghp_abcdefghijklmnopqrstuvwxyz",
			want:  "auth " + RedactPlaceholder,
		},
		{
			name:  "github fine-grained pat",
			input: "github_pat_abcdefghijklmnopqrstuvwxyz is mine",
			want:  RedactPlaceholder + " is mine",
		},
		{
			name:  "bearer header",
			input: "rejected header Bearer abcdefghijklmnop123",
			want:  "rejected header " + RedactPlaceholder,
		},
		{
			name:  "no secrets",
			input: "this is a normal message",
			want:  "this is a normal message",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "multiple secrets",
			input: "keys: sk-abcdefghijklmnopqrstuvwxyz and ghp_abcdefghijklmnopqrstuvwxyz",
			want:  "keys: " + RedactPlaceholder + " and " + RedactPlaceholder,
		},
	}

	r := NewRedactor()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := r.Redact(tt.input)
			if got != tt.want {
				t.Errorf("Redact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_Literals(t *testing.T) {
	t.Parallel()

	r := NewRedactor()
	r.AddLiteral("my-super-secret-value")
	r.AddLiteral("") // empty should be ignored

	got := r.Redact("the token is my-super-secret-value here")
	want := "the token is " + RedactPlaceholder + " here"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func FuzzRedactor(f *testing.F) {
	f.Add("normal text")
	f.Add("sk-abcdefghijklmnopqrstuvwxyz")
	f.Add("Bearer abcdefghijklmnop123")
	f.Add("")
	f.Add("ghp_" + "a" + "bCdEfGhIjKlMnOpQrSt0")

	r := NewRedactor()
	r.AddLiteral("test-literal-secret")

	f.Fuzz(func(t *testing.T, input string) {
		result := r.Redact(input)

		// Redaction should be idempotent.
		double := r.Redact(result)
		if double != result {
			t.Errorf("redaction not idempotent: Redact(Redact(%q)) = %q, want %q", input, double, result)
		}
	})
}
