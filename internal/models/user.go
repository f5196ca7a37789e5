package models

import "time"

// DefaultPlannedDailyLimit is the daily trade limit assumed when a user has
// not declared one.
const DefaultPlannedDailyLimit = 3

// ExperienceLevel represents a trader's self-declared experience.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "BEGINNER"
	ExperienceIntermediate ExperienceLevel = "INTERMEDIATE"
	ExperienceAdvanced     ExperienceLevel = "ADVANCED"
)

// DefaultTradingPlanRules is the pre-trade checklist given to new users.
var DefaultTradingPlanRules = []string{
	"Trend aligns with Higher Timeframe",
	"Risk/Reward is at least 1:2",
	"No major news events in next 30 mins",
}

// User represents a trader profile.
type User struct {
	ID                string          `json:"id"`
	Username          string          `json:"username"`
	Email             string          `json:"email"`
	ExperienceLevel   ExperienceLevel `json:"experienceLevel"`
	PlannedDailyLimit int             `json:"plannedDailyLimit"`
	TradingPlanRules  []string        `json:"tradingPlanRules"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Config returns the engine configuration for the user.
func (u *User) Config() UserConfig {
	if u == nil {
		return DefaultUserConfig()
	}
	return UserConfig{PlannedDailyLimit: u.PlannedDailyLimit}.Normalized()
}

// UserConfig holds the per-user inputs to the metrics engine.
type UserConfig struct {
	PlannedDailyLimit int `json:"plannedDailyLimit"`
}

// DefaultUserConfig returns the configuration for a user with no settings.
func DefaultUserConfig() UserConfig {
	return UserConfig{PlannedDailyLimit: DefaultPlannedDailyLimit}
}

// Normalized substitutes the default limit for an unset or non-positive one.
func (c UserConfig) Normalized() UserConfig {
	if c.PlannedDailyLimit <= 0 {
		c.PlannedDailyLimit = DefaultPlannedDailyLimit
	}
	return c
}
