package services

import (
	"context"
	"errors"

	"github.com/thereayou/building-chat/internal/database"
	"github.com/thereayou/building-chat/internal/models"
)

// MembershipGuard проверяет членство в здании перед каждой операцией с комнатой.
// Результат не кэшируется.
type MembershipGuard struct {
	memberships BuildingMembership
}

func NewMembershipGuard(memberships BuildingMembership) *MembershipGuard {
	return &MembershipGuard{memberships: memberships}
}

func (g *MembershipGuard) AssertMember(ctx context.Context, userID, buildingID uint64) error {
	m, err := g.memberships.FindActiveMembership(ctx, userID, buildingID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return Internal("find membership", err)
	}
	if m == nil || m.Status != models.MembershipActive {
		return ErrForbidden
	}
	return nil
}
