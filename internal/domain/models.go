package domain

import (
	"fmt"
	"time"
)

type Game struct {
	AppID           int64  `json:"appid"`
	Name            string `json:"name"`
	PlaytimeForever int    `json:"playtime_forever"` // minutes
}

type AchievementRecord struct {
	APIName     string `json:"apiname"`
	Achieved    bool   `json:"achieved"`
	UnlockTime  int64  `json:"unlocktime"` // unix seconds, 0 when locked
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AchievementsMap holds one entry per game whose achievements were fetched
// successfully. Games that failed are absent.
type AchievementsMap map[int64][]AchievementRecord

type ProgressRow struct {
	AppID     int64
	Name      string
	Achieved  int
	Total     int
	Percent   int
	Remaining int
}

type SortKey string

const (
	SortByPercent SortKey = "percent"
	SortByTotal   SortKey = "total" // remaining achievements
)

func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortByPercent, SortByTotal:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q, expected %q or %q", s, SortByPercent, SortByTotal)
}

type Snapshot struct {
	ID      string // nanoid
	UserID  string
	Name    string // "games", "achievements"
	Version int
	Payload []byte
	SavedAt time.Time
}
