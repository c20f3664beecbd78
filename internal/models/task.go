package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "Pending"
	TaskStatusCompleted TaskStatus = "Completed"
)

// Priority of a task
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Recurrence is the rule that respawns a completed task
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

// Task is a to-do item, optionally recurring
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	Priority    Priority   `gorm:"default:'Medium'" json:"priority"`
	Status      TaskStatus `gorm:"default:'Pending';index" json:"status"`
	Recurrence  Recurrence `json:"recurrence"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsRecurring returns true if the task has a recurrence rule
func (t *Task) IsRecurring() bool {
	return t.Recurrence != RecurrenceNone
}

// IsCompleted returns true if the task is completed
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// ParsePriority accepts Low, Medium or High; empty means Medium
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	case "":
		return PriorityMedium, nil
	}
	return "", fmt.Errorf("invalid priority %q (use Low, Medium or High)", s)
}

// ParseRecurrence accepts "", None, Daily, Weekly or Monthly
func ParseRecurrence(s string) (Recurrence, error) {
	switch s {
	case "", "None":
		return RecurrenceNone, nil
	case string(RecurrenceDaily), string(RecurrenceWeekly), string(RecurrenceMonthly):
		return Recurrence(s), nil
	}
	return "", fmt.Errorf("invalid recurrence %q (use None, Daily, Weekly or Monthly)", s)
}
