package render

import (
	"strings"
	"testing"
)

func styled(style string) Options {
	opts := DefaultOptions()
	opts.Style = style
	return opts
}

func TestOptionsWidth(t *testing.T) {
	base := DefaultOptions()
	if base.Width != defaultWidth || base.Style != ThemeDark || !base.EnableEmoji || !base.PreserveNewLines || !base.TableWrap || base.InlineTableLinks {
		t.Fatalf("DefaultOptions() = %+v", base)
	}

	tests := []struct {
		name string
		got  Options
		want int
	}{
		{"explicit width", base.WithWidth(100), 100},
		{"clamped width", base.WithWidth(3), minReplyWidth},
		{"bubble interior", base.ForBubble(60), 56},
		{"tiny bubble", base.ForBubble(12), minReplyWidth},
	}
	for _, tt := range tests {
		if tt.got.Width != tt.want {
			t.Errorf("%s: Width = %d, want %d", tt.name, tt.got.Width, tt.want)
		}
	}
	if base.Width != defaultWidth {
		t.Error("width helpers should not modify the receiver")
	}
}

func TestBubbleWidth(t *testing.T) {
	for term, want := range map[int]int{20: 40, 80: 76, 200: maxBubbleWidth} {
		if got := BubbleWidth(term); got != want {
			t.Errorf("BubbleWidth(%d) = %d, want %d", term, got, want)
		}
	}
}

// Replies as the assistant service sends them
func TestMarkdown_AssistantReplies(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  []string
	}{
		{
			name:  "echo reply",
			input: "**You said:**\n\n> hello\n\n_5 characters received._",
			width: 80,
			want:  []string{"said", "hello", "received"},
		},
		{
			name:  "code answer",
			input: "Use a channel:\n\n```go\nch := make(chan int)\n```",
			width: 80,
			want:  []string{"channel", "make"},
		},
		{
			name:  "list",
			input: "Steps:\n\n1. Dial\n2. Send\n3. Wait for the reply",
			width: 80,
			want:  []string{"Dial", "Send", "Wait"},
		},
		{
			name:  "image description",
			input: "The image **cat.png** is a image/png file of 9 bytes.",
			width: 40,
			want:  []string{"cat.png", "bytes"},
		},
		{
			name:  "table",
			input: "| Key | Value |\n|---|---|\n| endpoint | ws://localhost:8080/chat |",
			width: 80,
			want:  []string{"Key", "endpoint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.input, DefaultOptions().WithWidth(tt.width))
			if err != nil {
				t.Fatalf("Markdown() error = %v", err)
			}
			// ANSI codes split styled runs, so look for single words
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q: %s", w, out)
				}
			}
		})
	}
}

func TestMarkdownEmoji(t *testing.T) {
	input := "Reconnected :tada:"

	out, err := Markdown(input, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, ":tada:") {
		t.Errorf("emoji should have been converted, got: %s", out)
	}

	plain := DefaultOptions()
	plain.EnableEmoji = false
	out, err = Markdown(input, plain)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ":tada:") {
		t.Errorf("emoji should stay as text, got: %s", out)
	}
}

func TestMarkdownInvalidStyle(t *testing.T) {
	opts := styled("nonexistent_style_path")
	_, err := Markdown("# Test", opts)
	// glamour should return an error for invalid style path
	if err == nil {
		t.Error("expected error for invalid style path")
	}
}

func TestReply(t *testing.T) {
	out := Reply("**hello** there", DefaultOptions())
	if !strings.Contains(out, "hello") || strings.Contains(out, "**") {
		t.Errorf("Reply should render markdown, got: %q", out)
	}
	if strings.HasPrefix(out, "\n") || strings.HasSuffix(out, "\n") {
		t.Errorf("Reply should trim surrounding newlines, got: %q", out)
	}
}

func TestReply_FallsBackToRaw(t *testing.T) {
	opts := styled("nonexistent_style_path")
	if got := Reply("**raw**", opts); got != "**raw**" {
		t.Errorf("Reply fallback = %q, want raw text", got)
	}
}

func TestMarkdownPaletteStyles(t *testing.T) {
	for _, name := range TUIThemeNames() {
		t.Run(name, func(t *testing.T) {
			out, err := Markdown("# Title\n\n`code` and [link](https://x.test)", styled(name))
			if err != nil {
				t.Fatalf("render with %s: %v", name, err)
			}
			if !strings.Contains(out, "Title") {
				t.Errorf("output missing heading: %q", out)
			}
		})
	}
}
