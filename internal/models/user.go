package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a persisted account document. Password stores only the bcrypt
// hash, Tokens holds every live session token, Avatar is the resized PNG
// blob. None of the three ever appears in a JSON response.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name,omitempty" json:"name,omitempty"`
	Email     string             `bson:"email" json:"email"`
	Age       int                `bson:"age,omitempty" json:"age,omitempty"`
	Password  string             `bson:"password" json:"-"`
	Avatar    []byte             `bson:"avatar,omitempty" json:"-"`
	Tokens    []string           `bson:"tokens" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Sanitize returns a copy of the user without sensitive fields populated.
func (u User) Sanitize() User {
	u.Password = ""
	u.Tokens = nil
	u.Avatar = nil
	return u
}

// HasToken reports whether token is currently a live session for the user.
func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// RemoveToken revokes a single session token, leaving the others intact.
func (u *User) RemoveToken(token string) {
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
}
