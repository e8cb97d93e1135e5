package models

// User is an account row. The Password column holds a one-way digest,
// never the plaintext.
type User struct {
	ID       int64
	Username string
	Password string
}

// Prompt is a stored question paired with the answer substring expected
// from the model. Rows belong to the user who created them.
type Prompt struct {
	ID       int64  `json:"id"`
	User     string `json:"-"`
	Prompt   string `json:"prompt"`
	Expected string `json:"expected"`
}

// TestResult is one harness outcome, appended per successful generation
// call. DateTest is formatted "YYYY-MM-DD HH:MM:SS" (local clock).
type TestResult struct {
	ID        int64
	User      string
	Prompt    string
	Expected  string
	AIAnswer  string
	IsCorrect bool
	DateTest  string
}

// AdlInteraction is a snapshot of the editor recorded when a user
// accepts an AI suggestion (or runs the optimizer).
type AdlInteraction struct {
	ID        int64
	User      string
	Code      string
	Question  string
	Answer    string
	DateSaved string
}
