package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

func TestCanPolicyTable(t *testing.T) {
	t.Parallel()

	purchaser := Actor{UserID: uuid.New(), Role: enums.UserRolePurchaser}
	supplier := Actor{UserID: uuid.New(), Role: enums.UserRoleSupplier}
	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	cases := []struct {
		name     string
		actor    Actor
		action   Action
		resource Resource
		want     bool
	}{
		{"purchaser adds cart position", purchaser, ActionCreate, ResourceCartPosition, true},
		{"purchaser places order", purchaser, ActionCreate, ResourceOrder, true},
		{"purchaser cannot create stock", purchaser, ActionCreate, ResourceStock, false},
		{"purchaser cannot confirm order position", purchaser, ActionConfirm, ResourceOrderPosition, false},
		{"purchaser cannot submit import", purchaser, ActionCreate, ResourceImportJob, false},
		{"purchaser cannot manage categories", purchaser, ActionCreate, ResourceCategory, false},
		{"supplier manages own stocks", supplier, ActionUpdate, ResourceStock, true},
		{"supplier confirms order position", supplier, ActionConfirm, ResourceOrderPosition, true},
		{"supplier submits import", supplier, ActionCreate, ResourceImportJob, true},
		{"supplier cannot place order", supplier, ActionCreate, ResourceOrder, false},
		{"supplier cannot create purchaser", supplier, ActionCreate, ResourcePurchaser, false},
		{"supplier reads carts with own lines", supplier, ActionRead, ResourceCart, true},
		{"admin manages users", admin, ActionDelete, ResourceUser, true},
		{"admin manages reference data", admin, ActionUpdate, ResourceCharacteristic, true},
		{"admin cancels order", admin, ActionDelete, ResourceOrder, true},
		{"admin confirms order position", admin, ActionConfirm, ResourceOrderPosition, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Can(tc.actor, tc.action, tc.resource))
		})
	}
}

func TestCanRejectsAnonymousAndUnknownRoles(t *testing.T) {
	t.Parallel()

	assert.False(t, Can(Actor{}, ActionRead, ResourceStock))
	assert.False(t, Can(Actor{UserID: uuid.New(), Role: enums.UserRole("ghost")}, ActionRead, ResourceStock))
}
