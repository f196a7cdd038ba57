// Package model defines the data structures used throughout the application.
package model

import "time"

// GitHubUser is a point-in-time snapshot of a GitHub account profile, as
// returned by api.github.com. Login and ID are stable; everything else is
// replaced wholesale on the next fetch — there is no incremental merge.
//
// WHY string AND NOT *string FOR NULLABLE FIELDS?
// GitHub returns null for name, company, location, bio and twitter_username
// when the user hasn't set them. JSON null leaves the zero value in place, so
// an empty string means "not set". That's simpler to work with than pointers
// and safe to render directly in templates.
type GitHubUser struct {
	Login           string    `json:"login"`            // GitHub username, e.g. "octocat"
	ID              int64     `json:"id"`               // GitHub's numeric user ID — stable, never changes
	AvatarURL       string    `json:"avatar_url"`       // Profile picture URL
	Name            string    `json:"name"`             // Display name (may be empty)
	Company         string    `json:"company"`          // e.g. "@github" (may be empty)
	Blog            string    `json:"blog"`             // Website URL, sometimes missing the protocol
	Location        string    `json:"location"`         // Free-form location (may be empty)
	Email           string    `json:"email"`            // Primary public email (may be empty)
	Bio             string    `json:"bio"`              // Profile bio (may be empty)
	TwitterUsername string    `json:"twitter_username"` // Twitter/X handle without the @ (may be empty)
	PublicRepos     int       `json:"public_repos"`
	PublicGists     int       `json:"public_gists"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
	CreatedAt       time.Time `json:"created_at"` // Account creation time
}

// Repository is a public repository owned by a GitHub user.
// Lists of these are always scoped to a single owner, sorted by
// most-recently-updated, and capped at the top 10 by the query itself.
type Repository struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	FullName        string          `json:"full_name"` // e.g. "octocat/hello-world"
	HTMLURL         string          `json:"html_url"`
	Description     string          `json:"description"` // may be empty
	StargazersCount int             `json:"stargazers_count"`
	Language        string          `json:"language"` // primary language (may be empty)
	UpdatedAt       time.Time       `json:"updated_at"`
	Owner           RepositoryOwner `json:"owner"`
}

// RepositoryOwner is the slice of the repository payload's owner object we
// care about.
type RepositoryOwner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}
