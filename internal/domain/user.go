package domain

// UserRole é um tipo string para representar o papel do utilizador no sistema.
// O papel chega sempre via JWT; a Loja Social não gere contas.
type UserRole string

const (
	RoleBeneficiary UserRole = "beneficiary"
	RoleEmployee    UserRole = "employee"
	RoleAdmin       UserRole = "admin"
)

// IsStaff indica funcionários e administradores.
func (r UserRole) IsStaff() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// StaffRoles lista os papéis com acesso às operações de gestão.
var StaffRoles = []UserRole{RoleEmployee, RoleAdmin}

// AllRoles lista todos os papéis autenticados.
var AllRoles = []UserRole{RoleBeneficiary, RoleEmployee, RoleAdmin}
