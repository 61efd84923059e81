package guard

import (
	"github.com/newstaq/portal/internal/core/domain"
)

// Route binds a path pattern (echo syntax) to the view it renders and the
// guard in front of it.
type Route struct {
	Path  string
	View  string
	Guard Kind
}

// Routes is the portal's route surface. "/" and unmatched paths are not
// listed; they follow Root and Fallback.
var Routes = []Route{
	{Path: domain.PathLogin, View: "login", Guard: Public},
	{Path: "/forgot-password", View: "forgot_password", Guard: Public},
	{Path: "/reset-password/:token", View: "reset_password", Guard: Public},
	{Path: "/mentions-legales", View: "legal_notice", Guard: Public},
	{Path: "/cgv", View: "terms_of_sale", Guard: Public},
	{Path: "/rgpd", View: "privacy", Guard: Public},

	{Path: domain.PathAdminHome, View: "dashboard", Guard: AdminOnly},
	{Path: "/products", View: "products", Guard: AdminOnly},
	{Path: "/inventory", View: "inventory", Guard: AdminOnly},
	{Path: "/receipts", View: "receipts", Guard: AdminOnly},
	{Path: "/orders", View: "orders", Guard: AdminOnly},
	{Path: "/integrations", View: "integrations", Guard: AdminOnly},
	{Path: "/inventory-counts", View: "inventory_counts", Guard: AdminOnly},
	{Path: "/clients", View: "clients", Guard: AdminOnly},
	{Path: "/billing", View: "billing", Guard: AdminOnly},
	{Path: "/notifications", View: "notifications", Guard: AdminOnly},
	{Path: "/profile", View: "profile", Guard: AdminOnly},

	{Path: domain.PathClientHome, View: "client_dashboard", Guard: ClientOnly},
	{Path: "/client/products", View: "client_products", Guard: ClientOnly},
	{Path: "/client/inventory", View: "client_inventory", Guard: ClientOnly},
	{Path: "/client/orders", View: "client_orders", Guard: ClientOnly},
	{Path: "/client/receipts", View: "client_receipts", Guard: ClientOnly},
	{Path: "/client/invoices", View: "client_invoices", Guard: ClientOnly},
	{Path: "/client/profile", View: "client_profile", Guard: ClientOnly},
}

// Lookup finds the route registered for an exact pattern.
func Lookup(path string) (Route, bool) {
	for _, r := range Routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// NavItem is one entry of the navigation bar.
type NavItem struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

var adminNav = []NavItem{
	{Path: "/dashboard", Label: "Tableau de bord"},
	{Path: "/products", Label: "Produits"},
	{Path: "/inventory", Label: "Inventaire"},
	{Path: "/receipts", Label: "Réceptions"},
	{Path: "/orders", Label: "Commandes"},
	{Path: "/integrations", Label: "Intégrations"},
	{Path: "/billing", Label: "Facturation"},
	{Path: "/notifications", Label: "Notifications"},
	{Path: "/clients", Label: "Clients"},
	{Path: "/profile", Label: "Mon Profil"},
}

var clientNav = []NavItem{
	{Path: "/client", Label: "Mon Espace"},
	{Path: "/client/products", Label: "Mes Produits"},
	{Path: "/client/inventory", Label: "Mon Stock"},
	{Path: "/client/orders", Label: "Mes Commandes"},
	{Path: "/client/receipts", Label: "Mes Réceptions"},
	{Path: "/client/invoices", Label: "Mes Factures"},
	{Path: "/client/profile", Label: "Mon Profil"},
}

// Navigation returns the chrome for st: nothing when signed out or still
// loading, otherwise the item list of the user's role.
func Navigation(st domain.AuthState) []NavItem {
	if st.Loading || !st.IsAuthenticated {
		return nil
	}
	src := adminNav
	if st.IsClient {
		src = clientNav
	}
	out := make([]NavItem, len(src))
	copy(out, src)
	return out
}
