package timeline

import (
	"path/filepath"
	"testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewService() error: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestRecordAndListByConn(t *testing.T) {
	svc := newTestService(t)

	exchanges := []*Exchange{
		{TraceID: "tr1", ConnID: "c1", Kind: KindText, ContentIn: "hello", Status: "user_input_requested", Out: "hi, what can I do?"},
		{TraceID: "tr2", ConnID: "c1", Kind: KindAudio, ContentIn: "add buy milk", Status: "finished", Out: "done, goodbye"},
		{TraceID: "tr3", ConnID: "c2", Kind: KindText, ContentIn: "other conn", Status: "error", ErrorText: "pipeline failed"},
	}
	for _, ex := range exchanges {
		if err := svc.RecordExchange(ex); err != nil {
			t.Fatalf("RecordExchange() error: %v", err)
		}
		if ex.ID == 0 {
			t.Error("exchange id not populated")
		}
	}

	got, err := svc.ListByConn("c1")
	if err != nil {
		t.Fatalf("ListByConn() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 exchanges for c1, got %d", len(got))
	}
	if got[0].ContentIn != "hello" || got[1].ContentIn != "add buy milk" {
		t.Errorf("exchanges out of order: %q, %q", got[0].ContentIn, got[1].ContentIn)
	}
	if got[1].Kind != KindAudio {
		t.Errorf("kind = %s, want %s", got[1].Kind, KindAudio)
	}
}

func TestListRecentOrderAndLimit(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 5; i++ {
		ex := &Exchange{TraceID: "t", ConnID: "c", Kind: KindText, ContentIn: string(rune('a' + i))}
		if err := svc.RecordExchange(ex); err != nil {
			t.Fatalf("RecordExchange() error: %v", err)
		}
	}

	got, err := svc.ListRecent(3)
	if err != nil {
		t.Fatalf("ListRecent() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 exchanges, got %d", len(got))
	}
	if got[0].ContentIn != "e" {
		t.Errorf("newest first expected, got %q", got[0].ContentIn)
	}
}
