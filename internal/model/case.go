package model

import "go.mongodb.org/mongo-driver/bson/primitive"

type CaseStatus string

const (
	CaseSolved    CaseStatus = "Solved"
	CaseNotSolved CaseStatus = "Not Solved"
)

// Case 用户提交的支持工单，同一邮箱最多一个未解决工单
type Case struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name    string             `bson:"name" json:"name"`
	Email   string             `bson:"email" json:"email"`
	Message string             `bson:"message,omitempty" json:"message,omitempty"`
	Status  CaseStatus         `bson:"status" json:"status"`
}
