package ticktick

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeTestToken(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "ticktick_token.json")
	cred := Credential{
		AccessToken: "test-token",
		ExpiresAt:   time.Now().Add(time.Hour),
		TokenType:   "bearer",
		Scope:       "tasks:read tasks:write",
	}
	data, _ := json.Marshal(cred)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	return path
}

// fakeTickTick is a minimal in-memory TickTick API.
type fakeTickTick struct {
	projects       []Project
	tasks          map[string][]Task // by project id
	projectCreates int
	taskCreates    int
	lastTaskBody   map[string]any
	nextTaskID     int
}

func newFakeTickTick() *fakeTickTick {
	return &fakeTickTick{
		projects: []Project{
			{ID: "inbox1", Name: "Inbox", Kind: "INBOX"},
			{ID: "p1", Name: "Work"},
		},
		tasks: map[string][]Task{},
	}
}

func (f *fakeTickTick) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/project", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(f.projects)
		case http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.projectCreates++
			p := Project{ID: "p-new", Name: body["name"].(string)}
			f.projects = append(f.projects, p)
			json.NewEncoder(w).Encode(p)
		}
	})
	mux.HandleFunc("/task", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.taskCreates++
		f.lastTaskBody = body
		f.nextTaskID++
		task := Task{
			ID:        "t" + string(rune('0'+f.nextTaskID)),
			ProjectID: body["projectId"].(string),
			Title:     body["title"].(string),
		}
		if task.ProjectID == "inbox" {
			task.ProjectID = "inbox1"
		}
		f.tasks[task.ProjectID] = append(f.tasks[task.ProjectID], task)
		json.NewEncoder(w).Encode(task)
	})
	mux.HandleFunc("/task/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.lastTaskBody = body
		json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/project/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/project/"), "/")
		projectID := parts[0]
		switch {
		case len(parts) == 2 && parts[1] == "data":
			var project Project
			for _, p := range f.projects {
				if p.ID == projectID {
					project = p
				}
			}
			json.NewEncoder(w).Encode(ProjectData{Project: project, Tasks: f.tasks[projectID]})
		case len(parts) == 3 && parts[1] == "task":
			for _, task := range f.tasks[projectID] {
				if task.ID == parts[2] {
					json.NewEncoder(w).Encode(task)
					return
				}
			}
			http.Error(w, "task not found", http.StatusNotFound)
		case len(parts) == 4 && parts[3] == "complete":
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})
	return mux
}

func newTestClient(t *testing.T, fake *fakeTickTick) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenFile:    writeTestToken(t, t.TempDir()),
		BaseURL:      srv.URL,
	})
	if !client.Authenticated() {
		t.Fatal("test client should be authenticated")
	}
	return client, srv
}

func TestCredentialExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		valid     bool
	}{
		{"future expiry", now.Add(time.Minute), true},
		{"exact boundary", now, false},
		{"past expiry", now.Add(-time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &Credential{AccessToken: "tok", ExpiresAt: tt.expiresAt}
			if got := cred.Valid(now); got != tt.valid {
				t.Errorf("Valid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestLoadCredentialRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	cred := Credential{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour)}
	data, _ := json.Marshal(cred)
	os.WriteFile(path, data, 0o600)

	if got := loadCredential(path, time.Now()); got != nil {
		t.Errorf("expected nil credential for expired token, got %+v", got)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expired token file should be removed")
	}
}

func TestLoadCredentialMissingOrBroken(t *testing.T) {
	dir := t.TempDir()

	if got := loadCredential(filepath.Join(dir, "missing.json"), time.Now()); got != nil {
		t.Errorf("expected nil for missing file, got %+v", got)
	}

	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte("{not json"), 0o600)
	if got := loadCredential(broken, time.Now()); got != nil {
		t.Errorf("expected nil for unparseable file, got %+v", got)
	}
}

func TestUnauthenticated(t *testing.T) {
	client := NewClient(Config{
		ClientID:  "cid",
		TokenFile: filepath.Join(t.TempDir(), "absent.json"),
	})

	_, err := client.GetTasks(context.Background(), "")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	_, err = client.CreateTask(context.Background(), CreateTaskInput{Title: "x"})
	if !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCreateTaskUnknownProjectAutoCreates(t *testing.T) {
	fake := newFakeTickTick()
	client, _ := newTestClient(t, fake)

	task, err := client.CreateTask(context.Background(), CreateTaskInput{
		Title:       "Prepare slides",
		ProjectName: "Conference",
	})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}
	if fake.projectCreates != 1 {
		t.Errorf("expected exactly 1 project create, got %d", fake.projectCreates)
	}
	if fake.taskCreates != 1 {
		t.Errorf("expected exactly 1 task create, got %d", fake.taskCreates)
	}
	if task.ProjectID != "p-new" {
		t.Errorf("task created in project %s, want p-new", task.ProjectID)
	}

	// The new project must be visible in the cache afterwards.
	found := false
	for _, p := range client.Projects() {
		if p.Name == "Conference" {
			found = true
		}
	}
	if !found {
		t.Error("auto-created project missing from cache")
	}
}

func TestCreateTaskCaseInsensitiveProjectMatch(t *testing.T) {
	fake := newFakeTickTick()
	client, _ := newTestClient(t, fake)

	task, err := client.CreateTask(context.Background(), CreateTaskInput{
		Title:       "Review PR",
		ProjectName: "wOrK",
	})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}
	if fake.projectCreates != 0 {
		t.Errorf("existing project matched case-insensitively, but %d project creates happened", fake.projectCreates)
	}
	if task.ProjectID != "p1" {
		t.Errorf("task landed in %s, want p1", task.ProjectID)
	}
}

func TestCreateTaskDateNormalization(t *testing.T) {
	fake := newFakeTickTick()
	client, _ := newTestClient(t, fake)

	_, err := client.CreateTask(context.Background(), CreateTaskInput{
		Title:   "Dated",
		DueDate: "2026-09-15",
	})
	if err != nil {
		t.Fatalf("CreateTask() error: %v", err)
	}
	if got := fake.lastTaskBody["dueDate"]; got != "2026-09-15T00:00:00.000Z" {
		t.Errorf("dueDate not normalized: %v", got)
	}
}

func TestUpdateTaskPreservesFields(t *testing.T) {
	fake := newFakeTickTick()
	fake.tasks["p1"] = []Task{{
		ID:        "t9",
		ProjectID: "p1",
		Title:     "Old title",
		Content:   "keep this content",
		DueDate:   "2026-09-10T00:00:00.000Z",
		Priority:  3,
		IsAllDay:  true,
		TimeZone:  "UTC",
	}}
	client, _ := newTestClient(t, fake)

	title := "X"
	updated, err := client.UpdateTask(context.Background(), "t9", TaskUpdate{Title: &title})
	if err != nil {
		t.Fatalf("UpdateTask() error: %v", err)
	}
	if updated.Title != "X" {
		t.Errorf("title not updated: %q", updated.Title)
	}

	// The submitted replacement payload carries all previously-set fields.
	body := fake.lastTaskBody
	if body["content"] != "keep this content" {
		t.Errorf("content dropped from replacement payload: %v", body["content"])
	}
	if body["dueDate"] != "2026-09-10T00:00:00.000Z" {
		t.Errorf("dueDate dropped: %v", body["dueDate"])
	}
	if body["priority"] != float64(3) {
		t.Errorf("priority dropped: %v", body["priority"])
	}
	if body["projectId"] != "p1" {
		t.Errorf("projectId dropped: %v", body["projectId"])
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	fake := newFakeTickTick()
	client, _ := newTestClient(t, fake)

	title := "X"
	_, err := client.UpdateTask(context.Background(), "nope", TaskUpdate{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInboxDiscoveryFromProjectList(t *testing.T) {
	fake := newFakeTickTick()
	client, _ := newTestClient(t, fake)

	id, err := client.InboxID(context.Background())
	if err != nil {
		t.Fatalf("InboxID() error: %v", err)
	}
	if id != "inbox1" {
		t.Errorf("inbox id = %s, want inbox1", id)
	}
}

func TestInboxDiscoveryFallbackProbeTask(t *testing.T) {
	fake := newFakeTickTick()
	// Account whose project list hides the inbox.
	fake.projects = []Project{{ID: "p1", Name: "Work"}}
	client, _ := newTestClient(t, fake)

	id, err := client.InboxID(context.Background())
	if err != nil {
		t.Fatalf("InboxID() error: %v", err)
	}
	if id != "inbox1" {
		t.Errorf("inbox id = %s, want inbox1 (from probe task)", id)
	}
	if fake.taskCreates != 1 {
		t.Errorf("expected 1 probe task create, got %d", fake.taskCreates)
	}
}

func TestCallbackServerTimeout(t *testing.T) {
	cb, err := startCallbackServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("startCallbackServer() error: %v", err)
	}

	_, err = cb.waitForCode(context.Background(), 50*time.Millisecond)
	if !errors.Is(err, ErrAuthorizationTimeout) {
		t.Errorf("expected ErrAuthorizationTimeout, got %v", err)
	}
}

func TestCallbackServerDeliversCode(t *testing.T) {
	cb, err := startCallbackServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("startCallbackServer() error: %v", err)
	}

	addr := cb.listener.Addr().String()
	go func() {
		http.Get("http://" + addr + "/callback?code=abc123")
	}()

	code, err := cb.waitForCode(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatalf("waitForCode() error: %v", err)
	}
	if code != "abc123" {
		t.Errorf("code = %q, want abc123", code)
	}
}

func TestGetTasksByDateKeepsOffsetCalendarDay(t *testing.T) {
	fake := newFakeTickTick()
	// Early morning in +0900 is still the previous day in UTC; the filter
	// must honor the written calendar day.
	fake.tasks["p1"] = []Task{
		{ID: "t1", ProjectID: "p1", Title: "morning", DueDate: "2026-09-15T01:00:00.000+0900"},
		{ID: "t2", ProjectID: "p1", Title: "plain", DueDate: "2026-09-15T12:00:00.000Z"},
		{ID: "t3", ProjectID: "p1", Title: "next day", DueDate: "2026-09-16T00:00:00.000Z"},
		{ID: "t4", ProjectID: "p1", Title: "undated"},
	}
	client, _ := newTestClient(t, fake)

	tasks, err := client.GetTasksByDate(context.Background(), "2026-09-15", "")
	if err != nil {
		t.Fatalf("GetTasksByDate() error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d: %+v", len(tasks), tasks)
	}
	for _, task := range tasks {
		if task.ID != "t1" && task.ID != "t2" {
			t.Errorf("unexpected task in bucket: %s (%s)", task.ID, task.DueDate)
		}
	}
}

func TestConcurrentClientAccess(t *testing.T) {
	client, _ := newTestClient(t, newFakeTickTick())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if err := client.LoadProjects(ctx); err != nil {
					errs <- err
					return
				}
				if _, err := client.GetTasks(ctx, ""); err != nil {
					errs <- err
					return
				}
				if _, err := client.InboxID(ctx); err != nil {
					errs <- err
					return
				}
				client.Projects()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent access error: %v", err)
	}
}
