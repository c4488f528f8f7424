package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User 应用用户，首次认证时按 firebaseUID upsert
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalAuthID string             `bson:"firebaseUID" json:"firebaseUID"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	TargetJobField string             `bson:"targetJobField,omitempty" json:"targetJobField,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserInfo is the denormalized author display info attached to list records.
type UserInfo struct {
	Name  string `json:"name"`
	Photo string `json:"photo"`
}

const (
	AnonymousName = "Anonymous"
	DefaultAvatar = "/default-avatar.png"
)

func DefaultUserInfo() UserInfo {
	return UserInfo{Name: AnonymousName, Photo: DefaultAvatar}
}
