package client

// LoginRequest carries the login form fields.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the credential issued by the server on a successful
// login. The access token is an opaque bearer value; the client never
// parses it.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignupRequest carries the signup form fields. DisplayName is optional.
type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"full_name,omitempty"`
}
