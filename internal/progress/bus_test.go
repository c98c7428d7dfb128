package progress

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNoopBusNeverErrors(t *testing.T) {
	var b Bus = NoopBus{}
	if err := b.Publish(context.Background(), Event{Subtask: "poster", Outcome: "succeeded"}); err != nil {
		t.Fatalf("NoopBus.Publish: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("NoopBus.Close: %v", err)
	}
}

func TestEventMarshalsExpectedKeys(t *testing.T) {
	ev := Event{SourceName: "favorites", VideoName: "demo", PagePID: 3, Subtask: "page_nfo", Outcome: "failed", Error: "boom", At: 1234}
	raw, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"source_name", "video_name", "page_pid", "subtask", "outcome", "error", "at"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("expected key %q in marshaled event, got %v", key, out)
		}
	}
}
