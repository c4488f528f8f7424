package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Question 问答帖子。Upvotes 始终等于 len(LikedBy)
type Question struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      string             `bson:"title,omitempty" json:"title,omitempty"`
	Body       string             `bson:"body" json:"body"`
	AuthorID   string             `bson:"userId" json:"userId"`
	Upvotes    int                `bson:"upvotes" json:"upvotes"`
	ReplyCount int                `bson:"replyCount" json:"replyCount"`
	LikedBy    []string           `bson:"likedBy" json:"likedBy"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// Reply 回复，属于某个 Question
type Reply struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Body       string             `bson:"body" json:"body"`
	QuestionID primitive.ObjectID `bson:"questionId" json:"questionId"`
	AuthorID   string             `bson:"userId" json:"userId"`
	Upvotes    int                `bson:"upvotes" json:"upvotes"`
	LikedBy    []string           `bson:"likedBy" json:"likedBy"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

// QuestionView is a question enriched with its author's display info.
type QuestionView struct {
	Question
	UserInfo UserInfo `json:"userInfo"`
}

type ReplyView struct {
	Reply
	UserInfo UserInfo `json:"userInfo"`
}

// VoteAction is the explicit direction of a vote; there is no toggle.
type VoteAction string

const (
	VoteInc VoteAction = "inc"
	VoteDec VoteAction = "dec"
)

func (a VoteAction) Valid() bool { return a == VoteInc || a == VoteDec }
