package rbac

import "net/http"

// Action is the closed set of capabilities a permission row can grant.
type Action int

const (
	ActionCreate Action = iota
	ActionRead
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// ActionForMethod maps an HTTP verb onto an action. Any verb outside
// the CRUD set is rejected outright.
func ActionForMethod(method string) (Action, bool) {
	switch method {
	case http.MethodGet:
		return ActionRead, true
	case http.MethodPost:
		return ActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate, true
	case http.MethodDelete:
		return ActionDelete, true
	}
	return 0, false
}
