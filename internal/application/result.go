package application

import "github.com/RaikyD/order-lifecycle-service/internal/domain"

// Result is the reply shape shared by the Kafka request/reply path and HTTP.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func OK(data any) Result {
	return Result{Success: true, Data: data}
}

// Fail exposes the message of business errors only; anything else is
// reported generically.
func Fail(err error) Result {
	if domain.IsPermanent(err) {
		return Result{Success: false, Message: err.Error()}
	}
	return Result{Success: false, Message: "internal error"}
}
