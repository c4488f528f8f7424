package model

import "go.mongodb.org/mongo-driver/bson/primitive"

// Status 学习进度
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Subtopic struct {
	ID     string `bson:"id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Status Status `bson:"status" json:"status"`
}

// Topic.Status 是派生字段，由 Subtopics 计算得出
type Topic struct {
	ID        string     `bson:"id" json:"id"`
	Name      string     `bson:"name" json:"name"`
	Status    Status     `bson:"status" json:"status"`
	Subtopics []Subtopic `bson:"subtopics" json:"subtopics"`
}

// Roadmap 用户学习路线，一个用户一份
type Roadmap struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name   string             `bson:"name" json:"name"`
	UserID primitive.ObjectID `bson:"userId" json:"userId"`
	Topics []Topic            `bson:"topics" json:"topics"`
}

// DeriveTopicStatus computes a topic's status from its subtopics:
// all completed -> completed, all not started -> not started, anything else -> in progress.
// A topic without subtopics stays not started.
func DeriveTopicStatus(subtopics []Subtopic) Status {
	if len(subtopics) == 0 {
		return StatusNotStarted
	}
	allCompleted, allNotStarted := true, true
	for _, s := range subtopics {
		if s.Status != StatusCompleted {
			allCompleted = false
		}
		if s.Status != StatusNotStarted {
			allNotStarted = false
		}
	}
	switch {
	case allCompleted:
		return StatusCompleted
	case allNotStarted:
		return StatusNotStarted
	default:
		return StatusInProgress
	}
}

// ReconcileTopics rewrites every topic status that disagrees with its subtopics
// and returns the corrected statuses keyed by topic index. An empty result means
// the roadmap was already consistent.
func (r *Roadmap) ReconcileTopics() map[int]Status {
	changed := make(map[int]Status)
	for i := range r.Topics {
		want := DeriveTopicStatus(r.Topics[i].Subtopics)
		if r.Topics[i].Status != want {
			r.Topics[i].Status = want
			changed[i] = want
		}
	}
	return changed
}

// FindSubtopic 按 id 查找 topic / subtopic 下标，找不到返回 -1
func (r *Roadmap) FindSubtopic(topicID, subtopicID string) (ti, si int) {
	ti, si = -1, -1
	for i := range r.Topics {
		if r.Topics[i].ID != topicID {
			continue
		}
		ti = i
		for j := range r.Topics[i].Subtopics {
			if r.Topics[i].Subtopics[j].ID == subtopicID {
				si = j
				return
			}
		}
		return
	}
	return
}
