package models

import "time"

// User представляет учетную запись на сервере.
// ConsentPublicShare — согласие пользователя на публичный шаринг его
// тренировок; без него share-запросы отклоняются.
type User struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	PasswordHash       string     `json:"-"`
	ConsentPublicShare bool       `json:"consent_public_share"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
}
