package catalog

import "testing"

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(cat.Modules) == 0 {
		t.Fatal("expected modules")
	}

	users, ok := cat.Module("users")
	if !ok {
		t.Fatal("users module missing")
	}
	if !users.Mandatory {
		t.Fatal("users module must be mandatory")
	}

	admin, ok := cat.Role("users", "admin")
	if !ok {
		t.Fatal("users/admin role missing")
	}
	if !admin.Create || !admin.Read || !admin.Update || !admin.Delete {
		t.Fatalf("admin template incomplete: %+v", admin)
	}

	viewer, ok := cat.Role("users", "viewer")
	if !ok {
		t.Fatal("users/viewer role missing")
	}
	if viewer.Create || viewer.Update || viewer.Delete || !viewer.Read {
		t.Fatalf("viewer template incorrect: %+v", viewer)
	}

	if _, ok := cat.Role("users", "superuser"); ok {
		t.Fatal("unknown role must not resolve")
	}
	if _, ok := cat.Role("payroll", "admin"); ok {
		t.Fatal("unknown module must not resolve")
	}

	if _, ok := cat.Plan("starter"); !ok {
		t.Fatal("starter plan missing")
	}
	if !cat.IsCurrency("USD") || cat.IsCurrency("XXX") {
		t.Fatal("currency lookup incorrect")
	}
	if !cat.IsOrganizationType("NGO") || cat.IsOrganizationType("Club") {
		t.Fatal("organization type lookup incorrect")
	}

	mand := cat.MandatoryModules()
	if len(mand) != 1 || mand[0] != "users" {
		t.Fatalf("unexpected mandatory set: %v", mand)
	}
}

func TestParseRejectsBrokenCatalog(t *testing.T) {
	cases := map[string]string{
		"no modules":     `plans: []`,
		"empty key":      "modules:\n  - key: \"\"\n    roles:\n      - id: a",
		"no roles":       "modules:\n  - key: users\n    mandatory: true",
		"duplicate role": "modules:\n  - key: users\n    mandatory: true\n    roles:\n      - id: a\n      - id: a",
		"no mandatory":   "modules:\n  - key: users\n    roles:\n      - id: a",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
