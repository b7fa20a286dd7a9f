package model

import "time"

// User represents an account that can own snippets.
//
// Accounts come from two places: local registration (username + bcrypt password
// hash) and GitHub OAuth. A GitHub account has GitHubID set and an empty
// PasswordHash, so it can never log in through the password form.
//
// WHY GitHubID int64 (not *int64)?
// GitHub user IDs start at 1, so 0 is a safe "not linked" value. The column is
// stored as NULL for local users so the UNIQUE constraint only applies to real IDs.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
