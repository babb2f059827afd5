package backend

// Backend API paths
const (
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathMe       = "/api/auth/me"
	PathRefresh  = "/api/auth/refresh"
	PathLogout   = "/api/auth/logout"
)

// Resources are the inventory collections proxied verbatim under /api/{resource}
var Resources = []string{
	"products",
	"categories",
	"talleres",
	"almacenes",
	"stock",
	"facturas",
}

// IsResource reports whether name is one of the proxied collections
func IsResource(name string) bool {
	for _, r := range Resources {
		if r == name {
			return true
		}
	}
	return false
}
