package domain

import "time"

// Usage holds token accounting for one exchange.
type Usage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	Estimated        bool `json:"estimated,omitempty"`
}

// TotalTokens returns the prompt plus completion count.
func (u Usage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}

// Result is the outcome of one completion call. Exactly one of Text (with
// Err == nil) or Err is meaningful.
type Result struct {
	Text     string
	Err      *Error
	Model    string
	Usage    Usage
	Duration time.Duration
}

// OK reports whether the call succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Success builds a successful result.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure builds a failed result.
func Failure(err *Error) Result {
	return Result{Err: err}
}

// Exchange is one transcript entry: a prompt and the response it produced.
type Exchange struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Bot       string    `json:"bot"`
	Model     string    `json:"model,omitempty"`
	Usage     Usage     `json:"usage"`
	CreatedAt time.Time `json:"created_at"`
}
