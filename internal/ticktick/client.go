// Package ticktick wraps the TickTick open API behind typed calls with a
// cached OAuth credential and an in-memory project cache.
package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL  = "https://api.ticktick.com/open/v1"
	defaultAuthURL  = "https://ticktick.com/oauth/authorize"
	defaultTokenURL = "https://ticktick.com/oauth/token"
)

// Config contains client construction settings. Zero-value URL fields fall
// back to the production endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectPort int
	TokenFile    string
	BaseURL      string
	AuthURL      string
	TokenURL     string
}

// Project mirrors a TickTick project.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind,omitempty"`
	ViewMode string `json:"viewMode,omitempty"`
	Color    string `json:"color,omitempty"`
}

// IsInbox reports whether the project is the account's inbox.
func (p Project) IsInbox() bool {
	return p.Kind == "INBOX"
}

// ChecklistItem is a subtask entry.
type ChecklistItem struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status,omitempty"`
}

// Task mirrors a TickTick task.
type Task struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"projectId"`
	Title         string          `json:"title"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	Status        int             `json:"status,omitempty"`
	CompletedTime string          `json:"completedTime,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	Reminders     []string        `json:"reminders,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
}

// ProjectData is a project detail response: the project plus its open tasks.
type ProjectData struct {
	Project Project `json:"project"`
	Tasks   []Task  `json:"tasks"`
}

// Client is the task-tracker facade. It owns the persisted credential and
// a project cache; the cache is private to one client instance so
// multi-account deployments stay straightforward. Methods are safe for
// concurrent use: one client is shared by every connection, and the mutex
// guards the cache and credential without being held across API calls.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu       sync.Mutex // guards creds, projects, inboxID
	creds    *Credential
	projects map[string]Project // keyed by project id
	inboxID  string
}

// NewClient creates a facade and loads any persisted credential.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.RedirectPort == 0 {
		cfg.RedirectPort = 8080
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = "ticktick_token.json"
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		projects:   make(map[string]Project),
		now:        time.Now,
	}
	c.creds = loadCredential(cfg.TokenFile, c.now())
	return c
}

// credential returns the current credential. Credentials are immutable
// once set; holders may read fields without further locking.
func (c *Client) credential() *Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *Client) setCredential(cred *Credential) {
	c.mu.Lock()
	c.creds = cred
	c.mu.Unlock()
}

// cachedProjects snapshots the project cache for lock-free iteration.
func (c *Client) cachedProjects() []Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Project, 0, len(c.projects))
	for _, p := range c.projects {
		out = append(out, p)
	}
	return out
}

func (c *Client) setProjects(projects []Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projects = make(map[string]Project, len(projects))
	for _, p := range projects {
		c.projects[p.ID] = p
		if p.IsInbox() && c.inboxID == "" {
			c.inboxID = p.ID
		}
	}
}

func (c *Client) addProject(p Project) {
	c.mu.Lock()
	c.projects[p.ID] = p
	c.mu.Unlock()
}

func (c *Client) cachedInboxID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inboxID
}

// setInboxID records the inbox id unless one is already known. Concurrent
// discoveries resolve to the same id, so first-write-wins is enough.
func (c *Client) setInboxID(id string) {
	c.mu.Lock()
	if c.inboxID == "" {
		c.inboxID = id
	}
	c.mu.Unlock()
}

// Authenticated reports whether a valid credential is loaded.
func (c *Client) Authenticated() bool {
	return c.credential().Valid(c.now())
}

func (c *Client) requireAuth() error {
	if !c.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// LoadProjects refreshes the in-memory project cache from the server and
// records the inbox id when the account exposes one.
func (c *Client) LoadProjects(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	var projects []Project
	if err := c.doJSON(ctx, http.MethodGet, "/project", nil, &projects); err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	c.setProjects(projects)
	return nil
}

// Projects returns the cached projects.
func (c *Client) Projects() []Project {
	return c.cachedProjects()
}

// resolveProjectID maps a project name to an id, case-insensitively,
// creating the project when no cache entry matches.
func (c *Client) resolveProjectID(ctx context.Context, name string) (string, error) {
	for _, p := range c.cachedProjects() {
		if strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
	}
	slog.Info("Project not found, creating", "name", name)
	project, err := c.CreateProject(ctx, name)
	if err != nil {
		return "", err
	}
	return project.ID, nil
}

// InboxID returns the inbox project id, discovering it lazily. Accounts
// whose project list hides the inbox fall back to creating and deleting a
// throwaway task and reading the project id the server assigned it to.
func (c *Client) InboxID(ctx context.Context) (string, error) {
	if err := c.requireAuth(); err != nil {
		return "", err
	}
	if id := c.cachedInboxID(); id != "" {
		return id, nil
	}
	if err := c.LoadProjects(ctx); err != nil {
		return "", err
	}
	if id := c.cachedInboxID(); id != "" {
		return id, nil
	}
	id, err := c.discoverInboxID(ctx)
	if err != nil {
		return "", err
	}
	c.setInboxID(id)
	return id, nil
}

func (c *Client) discoverInboxID(ctx context.Context) (string, error) {
	temp := map[string]string{
		"title":     "_temp_task_for_inbox_id",
		"projectId": "inbox",
	}
	var created Task
	if err := c.doJSON(ctx, http.MethodPost, "/task", temp, &created); err != nil {
		return "", fmt.Errorf("discover inbox: %w", err)
	}
	path := fmt.Sprintf("/project/%s/task/%s", created.ProjectID, created.ID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		slog.Warn("Failed to delete inbox probe task", "task_id", created.ID, "error", err)
	}
	return created.ProjectID, nil
}

// CreateTaskInput contains the caller-supplied fields for a new task.
// Dates accept either YYYY-MM-DD or a full ISO timestamp.
type CreateTaskInput struct {
	Title       string
	ProjectName string
	Content     string
	DueDate     string
	StartDate   string
	IsAllDay    bool
	TimeZone    string
	Priority    int
	Reminders   []string
}

// CreateTask creates a task. An empty project name targets the inbox; an
// unknown project name implicitly creates that project first.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if err := c.LoadProjects(ctx); err != nil {
		return nil, err
	}

	projectID := c.cachedInboxID()
	if in.ProjectName != "" {
		id, err := c.resolveProjectID(ctx, in.ProjectName)
		if err != nil {
			return nil, err
		}
		projectID = id
	}
	if projectID == "" {
		// Inbox id may be undiscovered; the server accepts the literal
		// "inbox" alias and reports back the real id.
		projectID = "inbox"
	}

	tz := in.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	body := map[string]any{
		"title":     in.Title,
		"projectId": projectID,
		"content":   in.Content,
		"isAllDay":  in.IsAllDay,
		"timeZone":  tz,
		"priority":  in.Priority,
	}
	if in.DueDate != "" {
		body["dueDate"] = normalizeDate(in.DueDate)
	}
	if in.StartDate != "" {
		body["startDate"] = normalizeDate(in.StartDate)
	}
	if len(in.Reminders) > 0 {
		body["reminders"] = in.Reminders
	}

	var task Task
	if err := c.doJSON(ctx, http.MethodPost, "/task", body, &task); err != nil {
		return nil, fmt.Errorf("create task %q: %w", in.Title, err)
	}
	if in.ProjectName == "" {
		c.setInboxID(task.ProjectID)
	}
	return &task, nil
}

// GetTasks lists open tasks. With a project name, only that project's
// tasks; otherwise tasks across every cached project.
func (c *Client) GetTasks(ctx context.Context, projectName string) ([]Task, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if err := c.LoadProjects(ctx); err != nil {
		return nil, err
	}

	if projectName != "" {
		var projectID string
		for _, p := range c.cachedProjects() {
			if strings.EqualFold(p.Name, projectName) {
				projectID = p.ID
				break
			}
		}
		if projectID == "" {
			return nil, fmt.Errorf("project %q: %w", projectName, ErrNotFound)
		}
		data, err := c.GetProjectData(ctx, projectID)
		if err != nil {
			return nil, err
		}
		return data.Tasks, nil
	}

	var all []Task
	for _, p := range c.cachedProjects() {
		data, err := c.GetProjectData(ctx, p.ID)
		if err != nil {
			slog.Warn("Failed to get tasks for project", "project", p.Name, "error", err)
			continue
		}
		all = append(all, data.Tasks...)
	}
	return all, nil
}

// GetTasksByDate lists tasks due within [start, end]. Dates are
// YYYY-MM-DD; an empty end means the start day only.
func (c *Client) GetTasksByDate(ctx context.Context, start, end string) ([]Task, error) {
	tasks, err := c.GetTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	startDay, err := time.Parse("2006-01-02", start)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", start, err)
	}
	endDay := startDay
	if end != "" {
		endDay, err = time.Parse("2006-01-02", end)
		if err != nil {
			return nil, fmt.Errorf("parse end date %q: %w", end, err)
		}
	}

	var out []Task
	for _, task := range tasks {
		if task.DueDate == "" {
			continue
		}
		due, err := parseTaskDate(task.DueDate)
		if err != nil {
			continue
		}
		// Bucket by the calendar day the due date was written with, so an
		// offset timestamp keeps its local date.
		day := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
		if !day.Before(startDay) && !day.After(endDay) {
			out = append(out, task)
		}
	}
	return out, nil
}

// GetCompletedTasks lists completed tasks across all projects.
func (c *Client) GetCompletedTasks(ctx context.Context) ([]Task, error) {
	tasks, err := c.GetTasks(ctx, "")
	if err != nil {
		return nil, err
	}
	var out []Task
	for _, task := range tasks {
		if task.Status == 2 {
			out = append(out, task)
		}
	}
	return out, nil
}

// TaskUpdate holds the fields a caller wants changed. Nil pointers leave
// the existing value untouched.
type TaskUpdate struct {
	Title     *string
	Content   *string
	Desc      *string
	DueDate   *string
	StartDate *string
	Priority  *int
	IsAllDay  *bool
	TimeZone  *string
}

// UpdateTask merges the update onto the full existing record and submits a
// complete replacement object: the backend has no partial-patch semantics.
// The owning project is found by scanning cached projects since task ids
// alone carry no project reference.
func (c *Client) UpdateTask(ctx context.Context, taskID string, update TaskUpdate) (*Task, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	if err := c.LoadProjects(ctx); err != nil {
		return nil, err
	}

	existing, err := c.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if update.Title != nil {
		merged.Title = *update.Title
	}
	if update.Content != nil {
		merged.Content = *update.Content
	}
	if update.Desc != nil {
		merged.Desc = *update.Desc
	}
	if update.DueDate != nil {
		merged.DueDate = normalizeDate(*update.DueDate)
	}
	if update.StartDate != nil {
		merged.StartDate = normalizeDate(*update.StartDate)
	}
	if update.Priority != nil {
		merged.Priority = *update.Priority
	}
	if update.IsAllDay != nil {
		merged.IsAllDay = *update.IsAllDay
	}
	if update.TimeZone != nil {
		merged.TimeZone = *update.TimeZone
	}

	var updated Task
	if err := c.doJSON(ctx, http.MethodPost, "/task/"+taskID, &merged, &updated); err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return &updated, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if err := c.LoadProjects(ctx); err != nil {
		return err
	}
	task, err := c.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/project/%s/task/%s", task.ProjectID, taskID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", taskID, err)
	}
	return nil
}

// CompleteTask marks a task as completed.
func (c *Client) CompleteTask(ctx context.Context, taskID string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	if err := c.LoadProjects(ctx); err != nil {
		return err
	}
	task, err := c.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/project/%s/task/%s/complete", task.ProjectID, taskID)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("complete task %s: %w", taskID, err)
	}
	return nil
}

// CreateProject creates a project and adds it to the cache.
func (c *Client) CreateProject(ctx context.Context, name string) (*Project, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	body := map[string]any{
		"name":     name,
		"viewMode": "list",
		"kind":     "TASK",
	}
	var project Project
	if err := c.doJSON(ctx, http.MethodPost, "/project", body, &project); err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	c.addProject(project)
	return &project, nil
}

// GetProjectData fetches a project's detail including its open tasks.
func (c *Client) GetProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	var data ProjectData
	if err := c.doJSON(ctx, http.MethodGet, "/project/"+projectID+"/data", nil, &data); err != nil {
		return nil, fmt.Errorf("get project data %s: %w", projectID, err)
	}
	return &data, nil
}

// GetTaskByID fetches a single task within a project.
func (c *Client) GetTaskByID(ctx context.Context, projectID, taskID string) (*Task, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	var task Task
	path := fmt.Sprintf("/project/%s/task/%s", projectID, taskID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, fmt.Errorf("get task %s/%s: %w", projectID, taskID, err)
	}
	return &task, nil
}

// findTask scans cached projects for the task. No direct project-id lookup
// exists from a task id alone.
func (c *Client) findTask(ctx context.Context, taskID string) (*Task, error) {
	for _, p := range c.cachedProjects() {
		task, err := c.GetTaskByID(ctx, p.ID, taskID)
		if err != nil {
			continue
		}
		return task, nil
	}
	return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
}

// doJSON issues an authenticated request and decodes the response into out
// when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.credential().AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthenticated)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	default:
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// normalizeDate pads a bare YYYY-MM-DD date with the midnight time part
// the API expects.
func normalizeDate(date string) string {
	if len(date) == 10 {
		return date + "T00:00:00.000Z"
	}
	return date
}

func parseTaskDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05.000Z0700", time.RFC3339, "2006-01-02T15:04:05Z0700", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date: %s", s)
}
