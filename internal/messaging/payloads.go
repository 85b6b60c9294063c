package messaging

// GenerationTask asks a worker to generate one story.
type GenerationTask struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Theme     string `json:"theme"`
}

// NotificationStatus is the outcome of a generation task.
type NotificationStatus string

const (
	NotificationStatusSuccess NotificationStatus = "success"
	NotificationStatusError   NotificationStatus = "error"
)

// StoryNotification reports the outcome of a GenerationTask.
type StoryNotification struct {
	TaskID       string             `json:"task_id"`
	SessionID    string             `json:"session_id"`
	Status       NotificationStatus `json:"status"`
	StoryID      int64              `json:"story_id,omitempty"`
	Title        string             `json:"title,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
}
