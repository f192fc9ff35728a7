package policy

import (
	"testing"

	"miscompras/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	assert.True(t, Can(model.RoleDirector, ManageBudget))
	assert.False(t, Can(model.RoleAdmin, ManageBudget))
	assert.True(t, Can(model.RoleLeader, CreateAsiento))
	assert.False(t, Can(model.RoleUser, CreateAsiento))
	assert.True(t, Can(model.RoleAuditor, ViewAll))
	assert.False(t, Can(model.RoleUser, ViewAll))
	assert.False(t, Can("UNKNOWN", ViewAll))
}

func TestRoles_ReturnsCopy(t *testing.T) {
	r := Roles(SeniorApproval)
	r[0] = "X"
	assert.Equal(t, model.RoleDirector, Roles(SeniorApproval)[0])
}

func TestIsGroupFullyApproved(t *testing.T) {
	both := model.Requirement{CoordinatorApproval: true, DirectorApproval: true}
	coordOnly := model.Requirement{CoordinatorApproval: true}

	cases := []struct {
		name string
		reqs []model.Requirement
		role string
		want bool
	}{
		{"director overrides", []model.Requirement{coordOnly, {}}, model.RoleDirector, true},
		{"admin overrides", []model.Requirement{{}}, model.RoleAdmin, true},
		{"developer overrides", []model.Requirement{{}}, model.RoleDeveloper, true},
		{"coordinator alone is not enough", []model.Requirement{coordOnly}, model.RoleCoordinator, false},
		{"both flags everywhere", []model.Requirement{both, both}, model.RoleCoordinator, true},
		{"one member missing director", []model.Requirement{both, coordOnly}, model.RoleCoordinator, false},
		{"empty group", nil, model.RoleCoordinator, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsGroupFullyApproved(tc.reqs, tc.role))
		})
	}
}
