package domain

import (
	"encoding/json"
	"testing"
)

func TestUserProfile_Validate(t *testing.T) {
	cases := []struct {
		name string
		u    UserProfile
		ok   bool
	}{
		{"admin", UserProfile{Username: "a", Role: RoleAdmin}, true},
		{"client", UserProfile{Username: "c", Role: RoleClient, ClientID: "C1"}, true},
		{"client without client id", UserProfile{Username: "c", Role: RoleClient}, false},
		{"admin with client id", UserProfile{Username: "a", Role: RoleAdmin, ClientID: "C1"}, false},
		{"unknown role", UserProfile{Username: "x", Role: "guest"}, false},
		{"missing username", UserProfile{Role: RoleAdmin}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.u.Validate(); (err == nil) != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, err)
			}
		})
	}
}

func TestDecodeSession(t *testing.T) {
	u := UserProfile{ID: "1", Username: "c", Name: "C", Role: RoleClient, ClientID: "C1", ClientName: "TechStore"}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s, ok := DecodeSession("tok", raw)
	if !ok || s.Token != "tok" || s.User != u {
		t.Fatalf("unexpected decode result: %+v %v", s, ok)
	}

	if _, ok := DecodeSession("", raw); ok {
		t.Fatalf("missing token must not decode")
	}
	if _, ok := DecodeSession("tok", nil); ok {
		t.Fatalf("missing user must not decode")
	}
	if _, ok := DecodeSession("tok", []byte("{not json")); ok {
		t.Fatalf("corrupted user must not decode")
	}
	if _, ok := DecodeSession("tok", []byte(`{"username":"c","role":"client"}`)); ok {
		t.Fatalf("client without client_id must not decode")
	}
}

func TestNewAuthState(t *testing.T) {
	st := NewAuthState(nil, false)
	if st.IsAuthenticated || st.IsAdmin || st.IsClient || st.Home() != PathLogin {
		t.Fatalf("unexpected anonymous state: %+v", st)
	}

	admin := UserProfile{Username: "a", Role: RoleAdmin}
	st = NewAuthState(&admin, false)
	if !st.IsAuthenticated || !st.IsAdmin || st.IsClient || st.Home() != PathAdminHome {
		t.Fatalf("unexpected admin state: %+v", st)
	}

	admin.Name = "changed"
	if st.User.Name == "changed" {
		t.Fatalf("state must hold its own copy of the profile")
	}

	client := UserProfile{Username: "c", Role: RoleClient, ClientID: "C1"}
	st = NewAuthState(&client, true)
	if !st.IsClient || st.IsAdmin || !st.Loading || st.Home() != PathClientHome {
		t.Fatalf("unexpected client state: %+v", st)
	}
}
