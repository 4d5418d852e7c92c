// Package authz centralizes role policy and row visibility. Services
// ask Can before mutating and apply the scope helpers to every query
// so out-of-scope rows read as absent rather than forbidden.
package authz

import (
	"github.com/google/uuid"

	"github.com/prosupplyhq/prosupply-backend/pkg/enums"
)

// Actor is the authenticated identity a request acts as.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Action is one of the closed verb set evaluated against a resource.
type Action string

const (
	ActionRead    Action = "read"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionConfirm Action = "confirm"
)

// Resource names the kind of object an action targets.
type Resource string

const (
	ResourceUser                  Resource = "user"
	ResourceSupplier              Resource = "supplier"
	ResourceCategory              Resource = "category"
	ResourceProduct               Resource = "product"
	ResourceCharacteristic        Resource = "characteristic"
	ResourceStock                 Resource = "stock"
	ResourceProductCharacteristic Resource = "product_characteristic"
	ResourcePurchaser             Resource = "purchaser"
	ResourceChainStore            Resource = "chain_store"
	ResourceCart                  Resource = "cart"
	ResourceCartPosition          Resource = "cart_position"
	ResourceOrder                 Resource = "order"
	ResourceOrderPosition         Resource = "order_position"
	ResourceImportJob             Resource = "import_job"
)

type policyKey struct {
	role     enums.UserRole
	resource Resource
	action   Action
}

var policy = buildPolicy()

func buildPolicy() map[policyKey]struct{} {
	table := make(map[policyKey]struct{})
	grant := func(role enums.UserRole, resource Resource, actions ...Action) {
		for _, action := range actions {
			table[policyKey{role: role, resource: resource, action: action}] = struct{}{}
		}
	}

	crud := []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete}

	grant(enums.UserRolePurchaser, ResourceUser, ActionRead, ActionUpdate)
	grant(enums.UserRolePurchaser, ResourceSupplier, ActionRead)
	grant(enums.UserRolePurchaser, ResourceCategory, ActionRead)
	grant(enums.UserRolePurchaser, ResourceProduct, ActionRead)
	grant(enums.UserRolePurchaser, ResourceCharacteristic, ActionRead)
	grant(enums.UserRolePurchaser, ResourceStock, ActionRead)
	grant(enums.UserRolePurchaser, ResourceProductCharacteristic, ActionRead)
	grant(enums.UserRolePurchaser, ResourcePurchaser, ActionRead, ActionCreate, ActionUpdate)
	grant(enums.UserRolePurchaser, ResourceChainStore, crud...)
	grant(enums.UserRolePurchaser, ResourceCart, ActionRead, ActionDelete)
	grant(enums.UserRolePurchaser, ResourceCartPosition, crud...)
	grant(enums.UserRolePurchaser, ResourceOrder, crud...)
	grant(enums.UserRolePurchaser, ResourceOrderPosition, ActionRead)

	grant(enums.UserRoleSupplier, ResourceUser, ActionRead, ActionUpdate)
	grant(enums.UserRoleSupplier, ResourceSupplier, crud...)
	grant(enums.UserRoleSupplier, ResourceCategory, ActionRead)
	grant(enums.UserRoleSupplier, ResourceProduct, ActionRead)
	grant(enums.UserRoleSupplier, ResourceCharacteristic, ActionRead)
	grant(enums.UserRoleSupplier, ResourceStock, crud...)
	grant(enums.UserRoleSupplier, ResourceProductCharacteristic, crud...)
	grant(enums.UserRoleSupplier, ResourceChainStore, ActionRead)
	grant(enums.UserRoleSupplier, ResourceCart, ActionRead)
	grant(enums.UserRoleSupplier, ResourceCartPosition, ActionRead)
	grant(enums.UserRoleSupplier, ResourceOrder, ActionRead)
	grant(enums.UserRoleSupplier, ResourceOrderPosition, ActionRead, ActionConfirm)
	grant(enums.UserRoleSupplier, ResourceImportJob, ActionRead, ActionCreate)

	grant(enums.UserRoleAdmin, ResourceUser, crud...)
	grant(enums.UserRoleAdmin, ResourceSupplier, crud...)
	grant(enums.UserRoleAdmin, ResourceCategory, crud...)
	grant(enums.UserRoleAdmin, ResourceProduct, crud...)
	grant(enums.UserRoleAdmin, ResourceCharacteristic, crud...)
	grant(enums.UserRoleAdmin, ResourceStock, crud...)
	grant(enums.UserRoleAdmin, ResourceProductCharacteristic, crud...)
	grant(enums.UserRoleAdmin, ResourcePurchaser, ActionRead, ActionCreate, ActionUpdate)
	grant(enums.UserRoleAdmin, ResourceChainStore, crud...)
	grant(enums.UserRoleAdmin, ResourceCart, ActionRead, ActionDelete)
	grant(enums.UserRoleAdmin, ResourceCartPosition, crud...)
	grant(enums.UserRoleAdmin, ResourceOrder, crud...)
	grant(enums.UserRoleAdmin, ResourceOrderPosition, ActionRead, ActionConfirm)
	grant(enums.UserRoleAdmin, ResourceImportJob, ActionRead, ActionCreate)

	return table
}

// Can reports whether the actor's role may attempt the action on the
// resource kind. Row-level visibility is the scopes' job; Can only
// answers the coarse role question.
func Can(actor Actor, action Action, resource Resource) bool {
	if actor.UserID == uuid.Nil || !actor.Role.IsValid() {
		return false
	}
	_, ok := policy[policyKey{role: actor.Role, resource: resource, action: action}]
	return ok
}
