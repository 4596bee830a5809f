package contact

// ContactRequest represents a contact form submission
type ContactRequest struct {
	Name           string `json:"name" binding:"required,min=1,max=50"`
	Email          string `json:"email" binding:"required,email,max=50"`
	Organization   string `json:"organization" binding:"omitempty,max=100"`
	Title          string `json:"title" binding:"omitempty,max=100"`
	Message        string `json:"message" binding:"required,min=10,max=3000"`
	TurnstileToken string `json:"turnstileToken" binding:"required"`
}
