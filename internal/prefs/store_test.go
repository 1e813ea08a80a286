package prefs

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStringDefaults(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetString("theme", "light")
	if err != nil {
		t.Fatal(err)
	}
	if got != "light" {
		t.Errorf("absent key should yield default, got %q", got)
	}

	if err := s.SetString("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetString("theme", "light")
	if err != nil {
		t.Fatal(err)
	}
	if got != "dark" {
		t.Errorf("got %q, want dark", got)
	}
}

func TestBoolAndInt(t *testing.T) {
	s := newTestStore(t)

	done, err := s.GetBool("flag", false)
	if err != nil || done {
		t.Fatalf("absent bool: got %v, %v", done, err)
	}
	if err := s.SetBool("flag", true); err != nil {
		t.Fatal(err)
	}
	done, err = s.GetBool("flag", false)
	if err != nil || !done {
		t.Fatalf("stored bool: got %v, %v", done, err)
	}

	n, err := s.GetInt("goal", 20)
	if err != nil || n != 20 {
		t.Fatalf("absent int: got %d, %v", n, err)
	}
	if err := s.SetInt("goal", 35); err != nil {
		t.Fatal(err)
	}
	n, err = s.GetInt("goal", 20)
	if err != nil || n != 35 {
		t.Fatalf("stored int: got %d, %v", n, err)
	}
}

func TestJSONReportsPresence(t *testing.T) {
	s := newTestStore(t)

	var days []string
	ok, err := s.GetJSON("reading_days", &days)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("absent key reported as present")
	}

	if err := s.SetJSON("reading_days", []string{"2024-01-15"}); err != nil {
		t.Fatal(err)
	}
	ok, err = s.GetJSON("reading_days", &days)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(days) != 1 || days[0] != "2024-01-15" {
		t.Errorf("got ok=%v days=%v", ok, days)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetString("key", "value"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("key"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetString("key", "fallback")
	if err != nil {
		t.Fatal(err)
	}
	if got != "fallback" {
		t.Errorf("deleted key should yield default, got %q", got)
	}
}

func TestUserSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.UserSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Theme != "light" || settings.DailyPageGoal != 20 {
		t.Errorf("defaults = %+v", settings)
	}

	settings.Theme = "dark"
	settings.DailyPageGoal = 50
	if err := s.SaveUserSettings(settings); err != nil {
		t.Fatal(err)
	}

	settings, err = s.UserSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.Theme != "dark" || settings.DailyPageGoal != 50 {
		t.Errorf("after save = %+v", settings)
	}
}
