package ai

import "context"

// Question carries a vetted student question to the model along with the
// course snapshot the model may draw on.
type Question struct {
	Text          string
	CourseContext string
}

// Responder describes an AI model capable of answering course questions.
type Responder interface {
	Respond(ctx context.Context, question Question) (string, error)
}
