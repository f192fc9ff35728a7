// Package policy centralizes which roles may perform which operation.
// Handlers and services consult Can instead of carrying their own role lists.
package policy

import (
	"miscompras/internal/model"
)

// Capability names an operation gated by role.
type Capability string

const (
	ViewAll             Capability = "view_all"
	CreateAsiento       Capability = "create_asiento"
	UpdateStatus        Capability = "update_status"
	EditRequirement     Capability = "edit_requirement"
	DeleteRequirement   Capability = "delete_requirement"
	ReviewGroup         Capability = "review_group"
	SeniorApproval      Capability = "senior_approval"
	CoordinatorApproval Capability = "coordinator_approval"
	DeletePayment       Capability = "delete_payment"
	ApproveInvoice      Capability = "approve_invoice"
	ManageBudget        Capability = "manage_budget"
	NotifyOnCreate      Capability = "notify_on_create"
	NotifyOnGroupCreate Capability = "notify_on_group_create"
	ManageUsers         Capability = "manage_users"
)

var table = map[Capability][]string{
	// One set for every list endpoint (requirements, groups, invoices).
	ViewAll:             {model.RoleAdmin, model.RoleDirector, model.RoleLeader, model.RoleCoordinator, model.RoleAuditor, model.RoleDeveloper},
	CreateAsiento:       {model.RoleAdmin, model.RoleDirector, model.RoleLeader},
	UpdateStatus:        {model.RoleLeader, model.RoleDirector, model.RoleAdmin, model.RoleCoordinator, model.RoleDeveloper},
	EditRequirement:     {model.RoleAdmin, model.RoleDirector, model.RoleLeader, model.RoleCoordinator, model.RoleDeveloper},
	DeleteRequirement:   {model.RoleAdmin, model.RoleDirector, model.RoleDeveloper},
	ReviewGroup:         {model.RoleLeader, model.RoleCoordinator, model.RoleDirector, model.RoleAdmin, model.RoleDeveloper},
	SeniorApproval:      {model.RoleDirector, model.RoleAdmin, model.RoleDeveloper},
	CoordinatorApproval: {model.RoleCoordinator},
	DeletePayment:       {model.RoleAdmin, model.RoleDirector, model.RoleLeader},
	ApproveInvoice:      {model.RoleAdmin, model.RoleDirector, model.RoleLeader},
	ManageBudget:        {model.RoleDirector},
	NotifyOnCreate:      {model.RoleAdmin, model.RoleLeader, model.RoleDirector},
	NotifyOnGroupCreate: {model.RoleLeader, model.RoleCoordinator, model.RoleDirector, model.RoleAdmin},
	ManageUsers:         {model.RoleAdmin, model.RoleDeveloper},
}

// Can reports whether role holds capability c.
func Can(role string, c Capability) bool {
	for _, r := range table[c] {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns a copy of the role set for c.
func Roles(c Capability) []string {
	out := make([]string, len(table[c]))
	copy(out, table[c])
	return out
}

// IsGroupFullyApproved reports whether a group can be closed as APPROVED.
// A senior actor closes it alone; otherwise every member needs both the
// coordinator and the director flag.
func IsGroupFullyApproved(reqs []model.Requirement, actorRole string) bool {
	if Can(actorRole, SeniorApproval) {
		return true
	}
	for _, r := range reqs {
		if !(r.CoordinatorApproval && r.DirectorApproval) {
			return false
		}
	}
	return true
}
