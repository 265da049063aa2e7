package rbac

import "strings"

// Resource is the closed enumeration of record types the permission
// table can gate. The permission rows themselves store the lowercase
// string form.
type Resource string

const (
	ResourceUser     Resource = "user"
	ResourceRole     Resource = "role"
	ResourceCustomer Resource = "customer"
	ResourceProduct  Resource = "product"
	ResourceInvoice  Resource = "invoice"
)

// GloballyReadable reports whether list/retrieve queries on this
// resource skip the ownership visibility filter.
func (r Resource) GloballyReadable() bool {
	return r == ResourceCustomer || r == ResourceProduct
}

// ParseResource resolves a free-text resource name, case-insensitively.
func ParseResource(name string) (Resource, bool) {
	switch Resource(strings.ToLower(name)) {
	case ResourceUser:
		return ResourceUser, true
	case ResourceRole:
		return ResourceRole, true
	case ResourceCustomer:
		return ResourceCustomer, true
	case ResourceProduct:
		return ResourceProduct, true
	case ResourceInvoice:
		return ResourceInvoice, true
	}
	return "", false
}
