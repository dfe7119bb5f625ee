package entity

// 用户角色（封闭枚举）
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
	RoleVendor   = "vendor"
	RoleCustomer = "customer"
)

// 权限代码
const (
	PermUserManage     = "user:manage"
	PermInventoryRead  = "inventory:read"
	PermInventoryWrite = "inventory:write"
	PermPricingWrite   = "pricing:write"
	PermPromoWrite     = "promo:write"
	PermOrderCustomer  = "order:customer"
	PermOrderVendor    = "order:vendor"
	PermOrderAdmin     = "order:admin"
	PermPaymentConfirm = "payment:confirm"
	PermReportExport   = "report:export"
)

// rolePermissions 静态角色权限表，按集合成员判断，不做字符串模糊匹配
var rolePermissions = map[string]map[string]struct{}{
	RoleAdmin: permSet(
		PermUserManage, PermInventoryRead, PermInventoryWrite, PermPricingWrite,
		PermPromoWrite, PermOrderAdmin, PermPaymentConfirm, PermReportExport,
	),
	RoleManager: permSet(
		PermInventoryRead, PermInventoryWrite, PermPricingWrite, PermPromoWrite,
		PermOrderAdmin, PermReportExport,
	),
	RoleEmployee: permSet(
		PermInventoryRead, PermInventoryWrite,
	),
	RoleVendor: permSet(
		PermInventoryRead, PermInventoryWrite, PermPricingWrite, PermPromoWrite,
		PermOrderVendor,
	),
	RoleCustomer: permSet(
		PermInventoryRead, PermOrderCustomer,
	),
}

func permSet(perms ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// ValidRole 判断角色是否在枚举内
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// RoleHasPermission 判断角色是否具有权限
func RoleHasPermission(role, permission string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission]
	return ok
}
