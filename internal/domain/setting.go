package domain

import (
	"errors"
	"time"
)

// ErrSettingNotFound indicates that the setting key is not found.
var ErrSettingNotFound = errors.New("setting not found")

// Setting holds a back-office configuration entry, e.g. the posted board
// rates or the receipt footer text.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
