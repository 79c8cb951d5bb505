package domain

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationTaskAssigned    NotificationType = "task_assigned"
	NotificationTaskReminder    NotificationType = "task_reminder"
	NotificationNewClient       NotificationType = "new_client"
	NotificationClientConverted NotificationType = "client_converted"
)

// NotificationIntent is a request to push a message to one user's devices.
// Delivery is best effort and never blocks the mutation that produced it.
type NotificationIntent struct {
	ID           string            `json:"id"`
	TaskID       string            `json:"task_id,omitempty"`
	TargetUserID string            `json:"target_user_id"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Type         NotificationType  `json:"type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// TaskAssignedIntent notifies the assignee of a new task.
func TaskAssignedIntent(task *Task, assigner *User, now time.Time) NotificationIntent {
	name := assigner.DisplayName()
	return NotificationIntent{
		TaskID:       task.ID,
		TargetUserID: task.AssignedTo,
		Title:        "New Task Assigned",
		Message:      "New task assigned by " + name,
		Type:         NotificationTaskAssigned,
		Metadata: map[string]string{
			"assigned_by_name": name,
			"task_title":       task.Title,
		},
		CreatedAt: now,
	}
}

// TaskReminderIntent nudges an assignee who has not answered yet.
func TaskReminderIntent(task *Task, now time.Time) NotificationIntent {
	return NotificationIntent{
		TaskID:       task.ID,
		TargetUserID: task.AssignedTo,
		Title:        "Task Reminder",
		Message:      "Reminder: Task still pending",
		Type:         NotificationTaskReminder,
		Metadata: map[string]string{
			"task_title":     task.Title,
			"reminders_sent": fmt.Sprint(task.RemindersSent + 1),
		},
		CreatedAt: now,
	}
}

// ClientIntent tells an admin about a new or converted client.
func ClientIntent(kind NotificationType, client *Client, actor *User, adminID string, now time.Time) NotificationIntent {
	title := "New Client Added"
	verb := "added"
	if kind == NotificationClientConverted {
		title = "Lead Converted"
		verb = "converted"
	}
	return NotificationIntent{
		TargetUserID: adminID,
		Title:        title,
		Message:      fmt.Sprintf("%s %s %s", actor.DisplayName(), verb, client.BusinessName),
		Type:         kind,
		Metadata: map[string]string{
			"client_id":       client.ID,
			"client_name":     client.BusinessName,
			"created_by_name": actor.DisplayName(),
		},
		CreatedAt: now,
	}
}
