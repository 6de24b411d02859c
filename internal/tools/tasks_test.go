package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tickvoice/tickvoice/internal/ticktick"
)

func newToolClient(t *testing.T) *ticktick.Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ticktick.Project{
			{ID: "inbox1", Name: "Inbox", Kind: "INBOX"},
			{ID: "p1", Name: "Work"},
		})
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/data") {
			json.NewEncoder(w).Encode(ticktick.ProjectData{
				Tasks: []ticktick.Task{{ID: "t1", ProjectID: "p1", Title: "Review PR", DueDate: "2026-09-02T00:00:00.000Z"}},
			})
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(ticktick.Task{
			ID:        "t-new",
			ProjectID: body["projectId"].(string),
			Title:     body["title"].(string),
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	cred, _ := json.Marshal(ticktick.Credential{
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	})
	os.WriteFile(tokenFile, cred, 0o600)

	return ticktick.NewClient(ticktick.Config{
		ClientID:  "cid",
		TokenFile: tokenFile,
		BaseURL:   srv.URL,
	})
}

func TestRegisterTaskTools(t *testing.T) {
	r := NewRegistry()
	RegisterTaskTools(r, newToolClient(t))

	want := []string{
		"create_task", "list_tasks", "get_tasks_by_date",
		"get_completed_tasks", "update_task", "complete_task", "delete_task",
	}
	for _, name := range want {
		if _, ok := r.Get(name); !ok {
			t.Errorf("tool %s not registered", name)
		}
	}
	if got := len(r.Definitions()); got != len(want) {
		t.Errorf("definitions = %d, want %d", got, len(want))
	}
}

func TestCreateTaskToolExecute(t *testing.T) {
	r := NewRegistry()
	RegisterTaskTools(r, newToolClient(t))

	result, err := r.Execute(context.Background(), "create_task", map[string]any{
		"title":   "buy milk",
		"project": "Work",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "buy milk") || !strings.Contains(result, "t-new") {
		t.Errorf("result = %q", result)
	}
}

func TestCreateTaskToolMissingTitle(t *testing.T) {
	tool := NewCreateTaskTool(newToolClient(t))

	result, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "title is required") {
		t.Errorf("result = %q", result)
	}
}

func TestListTasksToolExecute(t *testing.T) {
	tool := NewListTasksTool(newToolClient(t))

	result, err := tool.Execute(context.Background(), map[string]any{"project": "Work"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "Review PR") {
		t.Errorf("result = %q", result)
	}
}

func TestTasksByDateToolExecute(t *testing.T) {
	tool := NewTasksByDateTool(newToolClient(t))

	result, err := tool.Execute(context.Background(), map[string]any{"start_date": "2026-09-02"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "Review PR") {
		t.Errorf("result = %q", result)
	}

	result, err = tool.Execute(context.Background(), map[string]any{"start_date": "2026-01-01"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "No tasks due") {
		t.Errorf("result = %q", result)
	}
}

func TestToolErrorsAreUserFacing(t *testing.T) {
	// Unauthenticated client: tools report the failure as a result string,
	// not an error, so the model can relay it.
	client := ticktick.NewClient(ticktick.Config{
		ClientID:  "cid",
		TokenFile: filepath.Join(t.TempDir(), "absent.json"),
	})
	tool := NewListTasksTool(client)

	result, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(result, "Error listing tasks") {
		t.Errorf("result = %q", result)
	}
}
