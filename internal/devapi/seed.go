package devapi

import (
	"context"
	"fmt"

	"github.com/newstaq/portal/internal/core/domain"
)

// Client is a customer account of the warehouse.
type Client struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"active"`
}

// Stats is the dashboard summary of one client, or of all clients for an
// admin.
type Stats struct {
	Stock struct {
		TotalProducts int `json:"total_products"`
		TotalQuantity int `json:"total_quantity"`
	} `json:"stock"`
	Orders struct {
		TotalOrders   int `json:"total_orders"`
		PendingOrders int `json:"pending_orders"`
	} `json:"orders"`
	Receipts struct {
		PendingReceipts int `json:"pending_receipts"`
	} `json:"receipts"`
}

type clientFigures struct {
	products, quantity, orders, pending, receipts int
}

// Catalog is the read-only data served next to the auth endpoints.
type Catalog struct {
	clients []Client
	figures map[string]clientFigures
}

// Clients returns every client.
func (c *Catalog) Clients() []Client {
	out := make([]Client, len(c.clients))
	copy(out, c.clients)
	return out
}

// Stats aggregates the figures of clientID, or of every client when empty.
func (c *Catalog) Stats(clientID string) Stats {
	var s Stats
	for id, f := range c.figures {
		if clientID != "" && id != clientID {
			continue
		}
		s.Stock.TotalProducts += f.products
		s.Stock.TotalQuantity += f.quantity
		s.Orders.TotalOrders += f.orders
		s.Orders.PendingOrders += f.pending
		s.Receipts.PendingReceipts += f.receipts
	}
	return s
}

type seedUser struct {
	username, name, password, email string
	client                          int // index in seedClients, -1 for admin
}

var seedClients = []Client{
	{Code: "TECH001", Name: "TechStore Pro", Email: "contact@techstore.fr", Active: true},
	{Code: "BIO002", Name: "BioMarket", Email: "info@biomarket.fr", Active: true},
	{Code: "FASHION003", Name: "FashionPlus", Email: "hello@fashionplus.fr", Active: true},
}

var seedUsers = []seedUser{
	{username: "admin", name: "Administrateur", password: "admin123", email: "admin@newstaq.fr", client: -1},
	{username: "techstore", name: "User TechStore", password: "client123", email: "contact@techstore.fr", client: 0},
	{username: "biomarket", name: "User BioMarket", password: "client123", email: "info@biomarket.fr", client: 1},
	{username: "fashionplus", name: "User FashionPlus", password: "client123", email: "hello@fashionplus.fr", client: 2},
}

// Seed registers the demo accounts and returns the matching catalog.
func Seed(ctx context.Context, svc *AuthService) (*Catalog, error) {
	cat := &Catalog{figures: make(map[string]clientFigures)}
	for i, c := range seedClients {
		c.ID = fmt.Sprintf("c%d", i+1)
		cat.clients = append(cat.clients, c)
		cat.figures[c.ID] = clientFigures{
			products: 10,
			quantity: 250 * (i + 1),
			orders:   10,
			pending:  3,
			receipts: 2,
		}
	}

	for i, u := range seedUsers {
		p := domain.UserProfile{
			ID:       fmt.Sprintf("u%d", i+1),
			Username: u.username,
			Name:     u.name,
			Role:     domain.RoleAdmin,
		}
		if u.client >= 0 {
			p.Role = domain.RoleClient
			p.ClientID = cat.clients[u.client].ID
			p.ClientName = cat.clients[u.client].Name
		}
		if err := svc.Register(ctx, p, u.email, u.password); err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.username, err)
		}
	}
	return cat, nil
}
