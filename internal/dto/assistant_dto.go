package dto

// AssistantAskRequest is a support question for the scoped assistant.
type AssistantAskRequest struct {
	Question string `json:"question" validate:"required,min=3,max=2000"`
}

// AssistantReplyResponse is the assistant's answer. OnTopic is false when the
// topic gate refused the question before any model call.
type AssistantReplyResponse struct {
	Answer  string `json:"answer"`
	OnTopic bool   `json:"on_topic"`
}
