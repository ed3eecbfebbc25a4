package postgres

import "testing"

func TestConnStringWithoutPassword(t *testing.T) {
	got := ConnString("db", "5432", "torch", "torch", "")
	want := "host=db port=5432 user=torch dbname=torch sslmode=disable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnStringWithPassword(t *testing.T) {
	got := ConnString("db", "5433", "u", "d", "pw")
	want := "host=db port=5433 user=u password=pw dbname=d sslmode=disable"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnStringQuotesPassword(t *testing.T) {
	got := ConnString("db", "5432", "u", "d", `it's a p\w`)
	want := `host=db port=5432 user=u password='it\'s a p\\w' dbname=d sslmode=disable`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnValue(t *testing.T) {
	cases := map[string]string{
		"plain":  "plain",
		"":       "''",
		"a b":    "'a b'",
		"o'neil": `'o\'neil'`,
	}
	for in, want := range cases {
		if got := connValue(in); got != want {
			t.Errorf("connValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 200, -5: 200, 50: 50, 20000: 10000}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Error("empty string should be NULL")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("unexpected %v", ns)
	}
}
