package services

import "github.com/connectbuzz/connectbuzz/models"

// AuthorizeOwnerOrAdmin fails unless acting owns the resource or holds the Admin role.
func AuthorizeOwnerOrAdmin(ownerID string, acting *models.User) error {
	if acting == nil {
		return Unauthenticated("Unauthorized")
	}
	if acting.ID == ownerID || acting.IsAdmin() {
		return nil
	}
	return Forbidden("Unauthorized")
}

// RequireAdmin fails unless acting holds the Admin role.
func RequireAdmin(acting *models.User) error {
	if acting == nil {
		return Unauthenticated("Unauthorized")
	}
	if !acting.IsAdmin() {
		return Forbidden("Unauthorized")
	}
	return nil
}
