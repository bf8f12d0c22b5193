package services

import "github.com/yeremiapane/qrdine/models"

// Capability -> aksi staff yang dijaga izin eksplisit
type Capability string

const (
	CapOrderTransition Capability = "orders.transition"
	CapOrderCancel     Capability = "orders.cancel"
	CapKitchenView     Capability = "kitchen.view"
	CapOrderList       Capability = "orders.list"
	CapTableRelease    Capability = "tables.release"
	CapTableForce      Capability = "tables.force_release"
	CapTableManage     Capability = "tables.manage"
	CapStatsView       Capability = "stats.view"
)

var roleCapabilities = map[string][]Capability{
	models.RoleAdmin: {
		CapOrderTransition, CapOrderCancel, CapKitchenView, CapOrderList,
		CapTableRelease, CapTableForce, CapTableManage, CapStatsView,
	},
	models.RoleStaff: {
		CapOrderTransition, CapOrderCancel, CapOrderList,
		CapTableRelease, CapStatsView,
	},
	models.RoleChef: {
		CapOrderTransition, CapKitchenView, CapOrderList,
	},
}

// Can -> cek izin eksplisit di awal setiap operasi staff-facing
func Can(role string, cap Capability) bool {
	for _, c := range roleCapabilities[role] {
		if c == cap {
			return true
		}
	}
	return false
}

// requireCapability mengembalikan Forbidden jika role tidak punya capability.
func requireCapability(rctx RequestContext, cap Capability) error {
	if !Can(rctx.Role, cap) {
		return Forbiddenf("role %s is not allowed to %s", rctx.Role, cap)
	}
	return nil
}
