package models

// User identifies the owner of a script repository. Identity is managed
// outside this service; only the id (repository namespace key) and the
// display name are carried here.
type User struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
