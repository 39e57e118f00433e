package ffprobe

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestResultHelpers(t *testing.T) {
	result, err := Parse([]byte(`{
		"streams": [
			{"index": 0, "codec_type": "audio", "codec_name": "aac"},
			{"index": 1, "codec_type": "video", "codec_name": "hevc", "width": 1280, "height": 720, "avg_frame_rate": "30/1"}
		],
		"format": {"duration": "123.450000", "size": "1000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	video, ok := result.VideoStream()
	if !ok || video.Index != 1 || video.Width != 1280 {
		t.Fatalf("unexpected video stream %+v", video)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if d, ok := result.Duration(); !ok || d != 123450*time.Millisecond {
		t.Fatalf("unexpected Duration: %s %v", d, ok)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if _, ok := result.Duration(); ok {
		t.Fatal("expected no duration")
	}
	if _, ok := (Result{}).VideoStream(); ok {
		t.Fatal("expected no video stream")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInspectEmptyPath(t *testing.T) {
	if _, err := Inspect(context.Background(), "", "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
