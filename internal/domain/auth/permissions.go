package auth

import "context"

const (
	RolePayrollAdmin = "payroll_admin"
	RoleAccountant   = "accountant"
	RoleSupervisor   = "supervisor"
	RoleAuditor      = "auditor"
)

const (
	PermEmployeesWrite  = "employees.write"
	PermAttendanceRead  = "attendance.read"
	PermAttendanceWrite = "attendance.write"
	PermPayrollRead     = "payroll.read"
	PermPayrollRun      = "payroll.run"
	PermPayrollPay      = "payroll.pay"
	PermAuditRead       = "audit.read"
)

var DefaultPermissions = []string{
	PermEmployeesWrite,
	PermAttendanceRead,
	PermAttendanceWrite,
	PermPayrollRead,
	PermPayrollRun,
	PermPayrollPay,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RolePayrollAdmin: {
		PermEmployeesWrite,
		PermAttendanceRead,
		PermAttendanceWrite,
		PermPayrollRead,
		PermPayrollRun,
		PermPayrollPay,
		PermAuditRead,
	},
	RoleAccountant: {
		PermAttendanceRead,
		PermPayrollRead,
		PermPayrollRun,
		PermPayrollPay,
	},
	RoleSupervisor: {
		PermAttendanceRead,
		PermAttendanceWrite,
		PermPayrollRead,
	},
	RoleAuditor: {
		PermAttendanceRead,
		PermPayrollRead,
		PermAuditRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct {
	byRole map[string]map[string]struct{}
}

func NewStaticPermissions() *StaticPermissions {
	byRole := make(map[string]map[string]struct{}, len(RolePermissions))
	for role, perms := range RolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
		byRole[role] = set
	}
	return &StaticPermissions{byRole: byRole}
}

func (p *StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	_, ok := p.byRole[role][permission]
	return ok, nil
}
