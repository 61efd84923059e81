// Package guard decides, from an AuthState alone, whether a requested view
// is rendered, replaced by the loading placeholder, or redirected.
//
// Checks run in a fixed order: loading, then authentication, then role.
// A still-rehydrating user must never be sent to the login page.
package guard

import (
	"github.com/newstaq/portal/internal/core/domain"
)

// Kind selects one of the guard variants.
type Kind int

const (
	Public Kind = iota
	Private
	AdminOnly
	ClientOnly
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case Private:
		return "private"
	case AdminOnly:
		return "admin"
	case ClientOnly:
		return "client"
	default:
		return "unknown"
	}
}

// Outcome is what the shell should do with the request.
type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard evaluation. Location is only set for
// redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

func render() Decision            { return Decision{Outcome: Render} }
func loading() Decision           { return Decision{Outcome: Loading} }
func redirect(to string) Decision { return Decision{Outcome: Redirect, Location: to} }

// rule describes one guard variant. requires is the role the view needs
// (empty for any authenticated user) and mismatch where to send the rest.
type rule struct {
	authenticated bool
	requires      domain.Role
	mismatch      string
}

var rules = map[Kind]rule{
	Public:     {},
	Private:    {authenticated: true},
	AdminOnly:  {authenticated: true, requires: domain.RoleAdmin, mismatch: domain.PathClientHome},
	ClientOnly: {authenticated: true, requires: domain.RoleClient, mismatch: domain.PathAdminHome},
}

// Evaluate applies the guard of kind to st.
func Evaluate(kind Kind, st domain.AuthState) Decision {
	r, ok := rules[kind]
	if !ok {
		r = rules[Private]
	}
	if !r.authenticated {
		return render()
	}
	if st.Loading {
		return loading()
	}
	if !st.IsAuthenticated || st.User == nil {
		return redirect(domain.PathLogin)
	}
	if r.requires != "" && st.User.Role != r.requires {
		return redirect(r.mismatch)
	}
	return render()
}

// Root is the policy for "/": authenticated users go to their role home,
// everybody else gets the public landing page.
func Root(st domain.AuthState) Decision {
	if st.Loading {
		return loading()
	}
	if st.IsAuthenticated {
		return redirect(st.Home())
	}
	return render()
}

// Fallback handles unmatched paths: private guard, then role home.
func Fallback(st domain.AuthState) Decision {
	d := Evaluate(Private, st)
	if d.Outcome != Render {
		return d
	}
	return redirect(st.Home())
}
