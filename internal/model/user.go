package model

// TokenTypeBearer is the only credential type issued by the mail service.
const TokenTypeBearer = "bearer"

// Credential is the access credential proving a successful login.
type Credential struct {
	// Token is the opaque bearer token.
	Token string

	// Type is the token type tag, always TokenTypeBearer.
	Type string
}

// UserProfile is the account information returned by the mail service.
type UserProfile struct {
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// User is the identity attached to an authenticated session.
type User struct {
	Email string
}
