package api

// credentials is the request body for /register and /login.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the token issued by /login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// messageResponse is the body of /register and /logout.
type messageResponse struct {
	Message string `json:"message"`
}
