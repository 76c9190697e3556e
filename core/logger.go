package core

// Logger is any service that can record application events.
// args may hold errors, extra data (map[string]interface{}) and the acting Operator.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator is the authenticated staff member acting on the portal.
// Identity is owned by the hosted auth provider; this is what its tokens tell us.
type Operator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
