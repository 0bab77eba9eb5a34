// Package service holds the engagement layer's business rules on top of the repositories.
package service

import (
	"context"
)

// AdminChecker reports whether a user holds admin privilege.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

// authorOrAdmin is the permission predicate shared by every author-owned
// mutation: the actor is the author, or the actor is an admin.
func authorOrAdmin(ctx context.Context, isAdmin AdminChecker, authorID, actorID uint) (bool, error) {
	if actorID != 0 && authorID == actorID {
		return true, nil
	}
	if isAdmin == nil || actorID == 0 {
		return false, nil
	}
	return isAdmin(ctx, actorID)
}
