package tool

import "github.com/google/uuid"

// GenerateRandomUUID returns a random session identifier.
func GenerateRandomUUID() string {
	return uuid.NewString()
}
