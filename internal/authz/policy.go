// Package authz decides which membership roles may use which operations.
package authz

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/Eursukkul/event-admission/internal/models"
)

//go:embed model.conf
var modelContent string

type Object string
type Action string

const (
	ObjectAccess Object = "access"
	ObjectLedger Object = "ledger"

	ActionVerify Action = "verify"
	ActionRead   Action = "read"
)

var defaultPolicy = [][]string{
	{string(models.RoleOrganizer), string(ObjectAccess), string(ActionVerify)},
	{string(models.RoleRoomManager), string(ObjectAccess), string(ActionVerify)},
	{string(models.RoleBadgeController), string(ObjectAccess), string(ActionVerify)},
	{string(models.RoleOrganizer), string(ObjectLedger), string(ActionRead)},
	{string(models.RoleRoomManager), string(ObjectLedger), string(ActionRead)},
}

type Enforcer struct {
	e casbin.IEnforcer
}

// NewEnforcer builds an in-memory enforcer with the embedded model and the
// built-in role policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(modelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultPolicy); err != nil {
		return nil, fmt.Errorf("load role policy: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allowed fails closed: an enforcer error is a refusal.
func (a *Enforcer) Allowed(role models.Role, obj Object, act Action) bool {
	ok, err := a.e.Enforce(string(role), string(obj), string(act))
	return err == nil && ok
}
