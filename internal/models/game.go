package models

import (
	"time"
)

// Game platforms
const (
	PlatformSteam = "Steam"
	PlatformEpic  = "Epic"
)

// Game is an entry in the imported game library
type Game struct {
	ID                   uint       `gorm:"primaryKey" json:"id"`
	AppID                string     `gorm:"column:app_id;index:idx_games_app_platform,unique" json:"app_id"`
	Name                 string     `gorm:"not null" json:"name"`
	Platform             string     `gorm:"not null;index:idx_games_app_platform,unique" json:"platform"`
	Playtime             int        `gorm:"default:0" json:"playtime"` // minutes
	AchievementsTotal    int        `gorm:"default:0" json:"achievements_total"`
	AchievementsUnlocked int        `gorm:"default:0" json:"achievements_unlocked"`
	HasAchievements      bool       `gorm:"default:false" json:"has_achievements"`
	IconURL              string     `json:"icon_url"`
	LastPlayed           *time.Time `json:"last_played"`
	IsCompleted          bool       `gorm:"default:false" json:"is_completed"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// AchievementPercent returns the unlocked share in the range 0-100
func (g *Game) AchievementPercent() float64 {
	if g.AchievementsTotal == 0 {
		return 0
	}
	return float64(g.AchievementsUnlocked) * 100 / float64(g.AchievementsTotal)
}

// IsPerfect returns true when every achievement is unlocked
func (g *Game) IsPerfect() bool {
	return g.HasAchievements && g.AchievementsTotal > 0 && g.AchievementsUnlocked == g.AchievementsTotal
}
