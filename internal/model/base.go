// Package model contains the gorm models persisted by the repositories.
package model

import "github.com/google/uuid"

// assignID fills an empty primary key with a random UUID.
func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
