package domain

// ChatRequest is a single-turn request to an external text-generation
// service. System may be empty; Prompt is the user-role message. Zero
// Temperature or MaxTokens fall back to the client's configured defaults.
type ChatRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}
