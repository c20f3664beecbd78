package models

import (
	"time"
)

// Setting keys consumed by the jobs
const (
	SettingDiscordWebhookURL     = "discord_webhook_url"
	SettingDiscordTaskWebhookURL = "discord_task_webhook_url"
	SettingDiscordUserID         = "discord_user_id"
	SettingAutoSendNews          = "auto_send_news"
	SettingAutoTaskReminders     = "auto_task_reminders"
	SettingGeminiAPIKey          = "gemini_api_key"
	SettingGeminiModel           = "gemini_model"
	SettingSteamAPIKey           = "steam_api_key"
	SettingSteamID               = "steam_id"
)

// Setting is a key/value pair; values may be JSON encoded
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// APIUsage is an append-only record of an outbound AI call
type APIUsage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	APIName      string    `gorm:"column:api_name;index;not null" json:"api_name"`
	ModelName    string    `json:"model_name"`
	RequestType  string    `gorm:"default:'generate'" json:"request_type"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message"`
}

// TableName keeps the table name singular
func (APIUsage) TableName() string {
	return "api_usage"
}

// UsageStats counts successful calls over fixed windows
type UsageStats struct {
	Hour  int64 `json:"hour"`
	Day   int64 `json:"day"`
	Total int64 `json:"total"`
}
