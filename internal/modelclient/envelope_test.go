package modelclient

import (
	"testing"

	"github.com/kandev/androidctl/internal/common/apperrors"
)

func TestParseEnvelopeBothBlocks(t *testing.T) {
	thought, action, err := parseEnvelope("  <think>I should tap the button</think>\n<answer>do(action=\"tap\", x=10, y=20)</answer> trailing junk")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thought != "I should tap the button" {
		t.Errorf("unexpected thought: %q", thought)
	}
	if action != `do(action="tap", x=10, y=20)` {
		t.Errorf("unexpected action: %q", action)
	}
}

func TestParseEnvelopeMissingThink(t *testing.T) {
	thought, action, err := parseEnvelope(`<answer>finish(message="done")</answer>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thought != "" {
		t.Errorf("expected empty thought, got %q", thought)
	}
	if action != `finish(message="done")` {
		t.Errorf("unexpected action: %q", action)
	}
}

func TestParseEnvelopeMissingAnswerIsMalformed(t *testing.T) {
	_, _, err := parseEnvelope(`<think>thinking...</think>`)
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}

func TestParseEnvelopeEmptyAnswerIsMalformed(t *testing.T) {
	_, _, err := parseEnvelope(`<answer>   </answer>`)
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}
