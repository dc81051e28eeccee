package app

import "github.com/google/uuid"

func newUUID() string {
	return uuid.NewString()
}

// validID reports whether id is a well-formed booking id.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
