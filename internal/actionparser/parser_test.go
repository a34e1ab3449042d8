package actionparser

import (
	"testing"

	"github.com/kandev/androidctl/internal/common/apperrors"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

func TestParseFinish(t *testing.T) {
	a, err := Parse(`finish(message="done")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Verb != v1.ActionFinish || a.Message != "done" {
		t.Errorf("unexpected action: %+v", a)
	}
}

func TestParseTapWithSurroundingProse(t *testing.T) {
	a, err := Parse("  sure, here we go -> do(action=\"Tap\", element=[500,300]) <- tapping now\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Verb != v1.ActionTap {
		t.Fatalf("expected Tap, got %v", a.Verb)
	}
	if a.Point.X != 500 || a.Point.Y != 300 {
		t.Errorf("unexpected point: %+v", a.Point)
	}
}

func TestParseTapWithSensitiveMessage(t *testing.T) {
	a, err := Parse(`do(action="Tap", element=[500,500], message="pay")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.SensitiveMessage != "pay" {
		t.Errorf("expected sensitive message, got %q", a.SensitiveMessage)
	}
}

func TestParseLaunch(t *testing.T) {
	a, err := Parse(`do(action="Launch", app="微信")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Verb != v1.ActionLaunch || a.App != "微信" {
		t.Errorf("unexpected action: %+v", a)
	}
}

func TestParseSwipe(t *testing.T) {
	a, err := Parse(`do(action="Swipe", start=[100,200], end=[300,400], duration="1 seconds")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Start.X != 100 || a.Start.Y != 200 || a.End.X != 300 || a.End.Y != 400 {
		t.Errorf("unexpected swipe endpoints: %+v", a)
	}
	if a.DurationMs != 1000 {
		t.Errorf("expected duration 1000ms, got %d", a.DurationMs)
	}
}

func TestParseWait(t *testing.T) {
	a, err := Parse(`do(action="Wait", duration="0 seconds")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Verb != v1.ActionWait || a.DurationMs != 0 {
		t.Errorf("unexpected action: %+v", a)
	}
}

func TestParseBackHome(t *testing.T) {
	a, err := Parse(`do(action="Back")`)
	if err != nil || a.Verb != v1.ActionBack {
		t.Fatalf("unexpected result: %+v, %v", a, err)
	}
	a, err = Parse(`do(action="Home")`)
	if err != nil || a.Verb != v1.ActionHome {
		t.Fatalf("unexpected result: %+v, %v", a, err)
	}
}

func TestParseUnknownCallIsMalformed(t *testing.T) {
	_, err := Parse("garbled()")
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}

func TestParseUnknownVerbIsMalformed(t *testing.T) {
	_, err := Parse(`do(action="Frobnicate")`)
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}

func TestParseMissingRequiredArgIsMalformed(t *testing.T) {
	_, err := Parse(`do(action="Tap")`)
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}

func TestParseEscapedQuotesInString(t *testing.T) {
	a, err := Parse(`finish(message="she said \"ok\"")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Message != `she said "ok"` {
		t.Errorf("unexpected message: %q", a.Message)
	}
}

func TestParseNoCallFoundIsMalformed(t *testing.T) {
	_, err := Parse("I am thinking about what to do next.")
	if !apperrors.Is(err, apperrors.MalformedResponse) {
		t.Fatalf("expected MalformedResponse, got %v", err)
	}
}
