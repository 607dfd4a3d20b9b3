package entity

import "time"

type Profile struct {
	ID       string `json:"id" firestore:"id"`
	Email    string `json:"email" firestore:"email"`
	FullName string `json:"full_name" firestore:"fullName"`
	Phone    string `json:"phone,omitempty" firestore:"phone,omitempty"`
	Role     string `json:"role" firestore:"role"` // "client", "agent", "admin"

	AvatarURL  string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	Bio        string `json:"bio,omitempty" firestore:"bio,omitempty"`
	Agency     string `json:"agency,omitempty" firestore:"agency,omitempty"`
	IsVerified bool   `json:"is_verified" firestore:"isVerified"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ProfileSnapshot is the lightweight view joined onto conversations and
// messages at read time.
type ProfileSnapshot struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsVerified bool   `json:"is_verified"`
}

// Snapshot reduces a profile to the fields messaging embeds.
func (p *Profile) Snapshot() *ProfileSnapshot {
	return &ProfileSnapshot{
		ID:         p.ID,
		FullName:   p.FullName,
		AvatarURL:  p.AvatarURL,
		IsVerified: p.IsVerified,
	}
}
