package model

import "time"

// User участник платформы в справочнике уведомлений.
// TelegramID nil если пользователь не привязал Telegram.
type User struct {
	ID          int64     `json:"id"`
	TelegramID  *int64    `json:"telegram_id"`
	DisplayName string    `json:"display_name"`
	IsExpert    bool      `json:"is_expert"`
	CreatedAt   time.Time `json:"created_at"`
}

// LinkCode одноразовый код для привязки Telegram через /start
type LinkCode struct {
	Code      string    `json:"code"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired истёк ли код к моменту now
func (c *LinkCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
