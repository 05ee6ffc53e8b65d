package models

import (
	"fmt"
	"strings"
)

// Topic is one subject the narration of a chapter must cover.
type Topic struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TopicList is the structured answer of the topic search model.
type TopicList struct {
	Topics []Topic `json:"topics"`
}

// Evaluation is the verdict on a drafted script.
type Evaluation struct {
	IsValid         bool   `json:"isValid"`
	FeedbackMessage string `json:"feedbackMessage"`
}

// FormatTopics renders topics as a bullet list for prompts.
func FormatTopics(topics []Topic) string {
	var b strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&b, "- %s: %s\n", t.Title, t.Description)
	}
	return b.String()
}
