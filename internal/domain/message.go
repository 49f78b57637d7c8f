package domain

// Role constants for conversation turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// FunctionCall is a model's request to invoke a tool.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a tool outcome back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Part is one fragment of a turn. Exactly one of the fields is meaningful:
// a part with neither FunctionCall nor FunctionResponse is a text part,
// even when Text is empty.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// TextPart builds a text part.
func TextPart(text string) Part { return Part{Text: text} }

// CallPart builds a function-call part.
func CallPart(name string, args map[string]any) Part {
	return Part{FunctionCall: &FunctionCall{Name: name, Args: args}}
}

// ResponsePart builds a function-response part.
func ResponsePart(name string, response map[string]any) Part {
	return Part{FunctionResponse: &FunctionResponse{Name: name, Response: response}}
}

// IsText reports whether the part is plain text.
func (p Part) IsText() bool {
	return p.FunctionCall == nil && p.FunctionResponse == nil
}

// Turn is one entry of the conversation sent to the model.
type Turn struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// UserTurn builds the initial user turn for a query.
func UserTurn(text string) Turn {
	return Turn{Role: RoleUser, Parts: []Part{TextPart(text)}}
}

// Candidate is one alternative response produced by the model.
type Candidate struct {
	Parts []Part `json:"parts"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
