package profile

import (
	"errors"
	"time"

	"github.com/tanushreec24/Streaker/internal/model"
)

var ErrNotFound = errors.New("profile not found")

// Patch carries partial updates. Nil means leave the field alone; for the
// nullable text fields an empty string clears the stored value.
type Patch struct {
	FullName  *string `json:"fullName"`
	Username  *string `json:"username"`
	AvatarURL *string `json:"avatarUrl"`
	Timezone  *string `json:"timezone"`
}

type Repo interface {
	Get(userID string) (model.Profile, error)
	Update(userID string, patch Patch, now time.Time) (model.Profile, error)
}

func applyPatch(p *model.Profile, patch Patch) {
	if patch.FullName != nil {
		if *patch.FullName == "" {
			p.FullName = nil
		} else {
			v := *patch.FullName
			p.FullName = &v
		}
	}
	if patch.Username != nil {
		if *patch.Username == "" {
			p.Username = nil
		} else {
			v := *patch.Username
			p.Username = &v
		}
	}
	if patch.AvatarURL != nil {
		if *patch.AvatarURL == "" {
			p.AvatarURL = nil
		} else {
			v := *patch.AvatarURL
			p.AvatarURL = &v
		}
	}
	if patch.Timezone != nil && *patch.Timezone != "" {
		p.Timezone = *patch.Timezone
	}
}
