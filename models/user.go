package models

import "time"

// DefaultLocale is assigned to users whose Telegram profile carries no usable language tag.
const DefaultLocale = "ru"

// User models a Telegram account that has interacted with the bot at least once.
type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegramId"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Locale     string    `json:"locale"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DisplayName returns the friendliest available identifier for greetings.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "friend"
}
