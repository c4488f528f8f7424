package cache

import "fmt"

// Key grammar. Page keys carry the normalized page/limit so "01" and "1" share an entry.
const (
	questionsPrefix = "questions:"
	repliesPrefix   = "replies:"
	userPrefix      = "user:"
)

func QuestionsPageKey(page, limit int) string {
	return fmt.Sprintf("questions:page=%d:limit=%d", page, limit)
}

// QuestionsPattern matches every cached question page.
func QuestionsPattern() string {
	return questionsPrefix + "page=*"
}

func RepliesPageKey(questionID string, page, limit int) string {
	return fmt.Sprintf("replies:questionId=%s:page=%d:limit=%d", questionID, page, limit)
}

// RepliesPattern matches every cached reply page of one question.
func RepliesPattern(questionID string) string {
	return fmt.Sprintf("%squestionId=%s:*", repliesPrefix, escapePattern(questionID))
}

func UserKey(externalAuthID string) string {
	return userPrefix + externalAuthID
}

// escapePattern quotes glob metacharacters so an id can never widen a SCAN MATCH.
func escapePattern(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
