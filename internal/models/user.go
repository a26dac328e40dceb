package models

import "github.com/5h444n/AutoDoc-Writer/internal/pkg/secret"

// UserModel represents a GitHub account that signed in through OAuth.
// The GitHub access token is stored encrypted; use the accessor pair
// below instead of touching the column directly.
type UserModel struct {
	Base
	GithubUsername string `json:"github_username" gorm:"uniqueIndex;not null"`
	Name           string `json:"name"`
	AvatarURL      string `json:"avatar_url"`

	// AccessTokenEnc holds the sealed GitHub token. Never plaintext.
	AccessTokenEnc string `json:"-" gorm:"column:access_token;type:text"`

	Repos []RepositoryModel `json:"repos,omitempty" gorm:"foreignKey:OwnerID"`
}

func (UserModel) TableName() string { return "users" }

// SetAccessToken seals and stores the GitHub token.
func (u *UserModel) SetAccessToken(box *secret.Box, token string) error {
	enc, err := box.Encrypt(token)
	if err != nil {
		return err
	}
	u.AccessTokenEnc = enc
	return nil
}

// AccessToken unseals the stored GitHub token.
func (u *UserModel) AccessToken(box *secret.Box) (string, error) {
	return box.Decrypt(u.AccessTokenEnc)
}
