package rbac

// Simple default policy. Admin keeps management surfaces; taking an exam is
// still entitlement-gated for every role.
var RolePermissions = map[string][]string{
	"user": {
		"exam:list",
		"exam:view",
		"attempt:start",
		"attempt:submit",
		"attempt:view-own",
		"plan:list",
		"checkout:create",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
