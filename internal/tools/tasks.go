package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/tickvoice/tickvoice/internal/ticktick"
)

// RegisterTaskTools wires every task-management tool into the registry.
func RegisterTaskTools(r *Registry, client *ticktick.Client) {
	r.Register(NewCreateTaskTool(client))
	r.Register(NewListTasksTool(client))
	r.Register(NewTasksByDateTool(client))
	r.Register(NewCompletedTasksTool(client))
	r.Register(NewUpdateTaskTool(client))
	r.Register(NewCompleteTaskTool(client))
	r.Register(NewDeleteTaskTool(client))
}

// CreateTaskTool creates a new task in the task tracker.
type CreateTaskTool struct {
	client *ticktick.Client
}

func NewCreateTaskTool(client *ticktick.Client) *CreateTaskTool {
	return &CreateTaskTool{client: client}
}

func (t *CreateTaskTool) Name() string { return "create_task" }
func (t *CreateTaskTool) Description() string {
	return "Create a new task. Tasks go to the inbox unless a project name is given; unknown project names are created automatically."
}

func (t *CreateTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "The task title",
			},
			"project": map[string]any{
				"type":        "string",
				"description": "Optional project name. Omit to use the inbox.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Optional task notes or description",
			},
			"due_date": map[string]any{
				"type":        "string",
				"description": "Optional due date, YYYY-MM-DD",
			},
			"priority": map[string]any{
				"type":        "integer",
				"description": "Priority: 0 none, 1 low, 3 medium, 5 high",
			},
		},
		"required": []string{"title"},
	}
}

func (t *CreateTaskTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	title := GetString(params, "title", "")
	if title == "" {
		return "Error: title is required", nil
	}

	task, err := t.client.CreateTask(ctx, ticktick.CreateTaskInput{
		Title:       title,
		ProjectName: GetString(params, "project", ""),
		Content:     GetString(params, "content", ""),
		DueDate:     GetString(params, "due_date", ""),
		Priority:    GetInt(params, "priority", 0),
	})
	if err != nil {
		return fmt.Sprintf("Error creating task: %v", err), nil
	}
	return fmt.Sprintf("Created task %q (id: %s)", task.Title, task.ID), nil
}

// ListTasksTool lists open tasks, optionally scoped to one project.
type ListTasksTool struct {
	client *ticktick.Client
}

func NewListTasksTool(client *ticktick.Client) *ListTasksTool {
	return &ListTasksTool{client: client}
}

func (t *ListTasksTool) Name() string { return "list_tasks" }
func (t *ListTasksTool) Description() string {
	return "List open tasks. Provide a project name to list only that project's tasks, or omit it for all tasks."
}

func (t *ListTasksTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"project": map[string]any{
				"type":        "string",
				"description": "Optional project name to filter by",
			},
		},
	}
}

func (t *ListTasksTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	tasks, err := t.client.GetTasks(ctx, GetString(params, "project", ""))
	if err != nil {
		return fmt.Sprintf("Error listing tasks: %v", err), nil
	}
	return renderTasks(tasks, "No open tasks found."), nil
}

// TasksByDateTool lists tasks due within a date range.
type TasksByDateTool struct {
	client *ticktick.Client
}

func NewTasksByDateTool(client *ticktick.Client) *TasksByDateTool {
	return &TasksByDateTool{client: client}
}

func (t *TasksByDateTool) Name() string { return "get_tasks_by_date" }
func (t *TasksByDateTool) Description() string {
	return "List tasks due on a date or within a date range. Use for questions like 'what is due today' or 'what do I have this week'."
}

func (t *TasksByDateTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"start_date": map[string]any{
				"type":        "string",
				"description": "Start of the range, YYYY-MM-DD",
			},
			"end_date": map[string]any{
				"type":        "string",
				"description": "Optional end of the range, YYYY-MM-DD. Omit for a single day.",
			},
		},
		"required": []string{"start_date"},
	}
}

func (t *TasksByDateTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	start := GetString(params, "start_date", "")
	if start == "" {
		return "Error: start_date is required", nil
	}
	tasks, err := t.client.GetTasksByDate(ctx, start, GetString(params, "end_date", ""))
	if err != nil {
		return fmt.Sprintf("Error fetching tasks by date: %v", err), nil
	}
	return renderTasks(tasks, "No tasks due in that range."), nil
}

// CompletedTasksTool lists completed tasks.
type CompletedTasksTool struct {
	client *ticktick.Client
}

func NewCompletedTasksTool(client *ticktick.Client) *CompletedTasksTool {
	return &CompletedTasksTool{client: client}
}

func (t *CompletedTasksTool) Name() string { return "get_completed_tasks" }
func (t *CompletedTasksTool) Description() string {
	return "List recently completed tasks across all projects."
}

func (t *CompletedTasksTool) Parameters() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *CompletedTasksTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	tasks, err := t.client.GetCompletedTasks(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching completed tasks: %v", err), nil
	}
	return renderTasks(tasks, "No completed tasks found."), nil
}

// UpdateTaskTool changes fields on an existing task.
type UpdateTaskTool struct {
	client *ticktick.Client
}

func NewUpdateTaskTool(client *ticktick.Client) *UpdateTaskTool {
	return &UpdateTaskTool{client: client}
}

func (t *UpdateTaskTool) Name() string { return "update_task" }
func (t *UpdateTaskTool) Description() string {
	return "Update an existing task's title, notes, due date, or priority. Fields not provided stay unchanged."
}

func (t *UpdateTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the task to update",
			},
			"title": map[string]any{
				"type":        "string",
				"description": "New title",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "New notes or description",
			},
			"due_date": map[string]any{
				"type":        "string",
				"description": "New due date, YYYY-MM-DD",
			},
			"priority": map[string]any{
				"type":        "integer",
				"description": "New priority: 0 none, 1 low, 3 medium, 5 high",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *UpdateTaskTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	taskID := GetString(params, "task_id", "")
	if taskID == "" {
		return "Error: task_id is required", nil
	}

	var update ticktick.TaskUpdate
	if v, ok := params["title"].(string); ok {
		update.Title = &v
	}
	if v, ok := params["content"].(string); ok {
		update.Content = &v
	}
	if v, ok := params["due_date"].(string); ok {
		update.DueDate = &v
	}
	if v, ok := params["priority"]; ok {
		if f, ok := v.(float64); ok {
			p := int(f)
			update.Priority = &p
		}
	}

	task, err := t.client.UpdateTask(ctx, taskID, update)
	if err != nil {
		return fmt.Sprintf("Error updating task: %v", err), nil
	}
	return fmt.Sprintf("Updated task %q (id: %s)", task.Title, task.ID), nil
}

// CompleteTaskTool marks a task as done.
type CompleteTaskTool struct {
	client *ticktick.Client
}

func NewCompleteTaskTool(client *ticktick.Client) *CompleteTaskTool {
	return &CompleteTaskTool{client: client}
}

func (t *CompleteTaskTool) Name() string { return "complete_task" }
func (t *CompleteTaskTool) Description() string {
	return "Mark a task as completed."
}

func (t *CompleteTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the task to complete",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *CompleteTaskTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	taskID := GetString(params, "task_id", "")
	if taskID == "" {
		return "Error: task_id is required", nil
	}
	if err := t.client.CompleteTask(ctx, taskID); err != nil {
		return fmt.Sprintf("Error completing task: %v", err), nil
	}
	return fmt.Sprintf("Completed task %s", taskID), nil
}

// DeleteTaskTool removes a task.
type DeleteTaskTool struct {
	client *ticktick.Client
}

func NewDeleteTaskTool(client *ticktick.Client) *DeleteTaskTool {
	return &DeleteTaskTool{client: client}
}

func (t *DeleteTaskTool) Name() string { return "delete_task" }
func (t *DeleteTaskTool) Description() string {
	return "Delete a task permanently."
}

func (t *DeleteTaskTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "The id of the task to delete",
			},
		},
		"required": []string{"task_id"},
	}
}

func (t *DeleteTaskTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	taskID := GetString(params, "task_id", "")
	if taskID == "" {
		return "Error: task_id is required", nil
	}
	if err := t.client.DeleteTask(ctx, taskID); err != nil {
		return fmt.Sprintf("Error deleting task: %v", err), nil
	}
	return fmt.Sprintf("Deleted task %s", taskID), nil
}

// renderTasks formats a task list for the model, one numbered line per
// task with due date and priority when present.
func renderTasks(tasks []ticktick.Task, emptyMsg string) string {
	if len(tasks) == 0 {
		return emptyMsg
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d tasks:\n\n", len(tasks)))
	for i, task := range tasks {
		sb.WriteString(fmt.Sprintf("%d. %s (id: %s", i+1, task.Title, task.ID))
		if task.DueDate != "" {
			sb.WriteString(", due: " + task.DueDate)
		}
		if task.Priority > 0 {
			sb.WriteString(fmt.Sprintf(", priority: %d", task.Priority))
		}
		sb.WriteString(")\n")
	}
	return sb.String()
}
