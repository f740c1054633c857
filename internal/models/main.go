// Package models defines the data structures exchanged with the product API.
package models

// Product is a catalogue record as served by the product API.
type Product struct {
	// ID is assigned by the server; zero for records not yet created.
	ID int `json:"id"`
	// Name is the display name of the product.
	Name string `json:"name"`
	// Category groups products for search.
	Category string `json:"category"`
	// Price is the unit price.
	Price float64 `json:"price"`
	// Quantity is the stock on hand.
	Quantity int `json:"quantity"`
}

// Credentials is the login request body. It is never stored.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the registration request body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by the login and register endpoints.
//
// Older deployments answer with name/status instead of user/role; both
// spellings are decoded and Normalize folds them together.
type AuthResponse struct {
	// Token is the bearer token for subsequent requests.
	Token string `json:"token"`
	// User is the display name of the authenticated account.
	User string `json:"user"`
	// Role is the server-assigned role ("admin" or "user").
	Role string `json:"role"`

	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Normalize fills User and Role from the legacy fields when they are empty.
func (r *AuthResponse) Normalize() {
	if r.User == "" {
		r.User = r.Name
	}
	if r.User == "" {
		r.User = r.Email
	}
	if r.Role == "" {
		r.Role = r.Status
	}
}

// Profile describes the authenticated account as reported by /api/profile.
type Profile struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Status string `json:"status"`
}
