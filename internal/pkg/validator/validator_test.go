package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidLatitude(t *testing.T) {
	cases := []struct {
		input float64
		want  bool
	}{
		{0, true},
		{-90, true},
		{90, true},
		{25.2048, true},
		{-90.0001, false},
		{91, false},
	}
	for _, c := range cases {
		if got := IsValidLatitude(c.input); got != c.want {
			t.Errorf("IsValidLatitude(%v) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidLongitude(t *testing.T) {
	cases := []struct {
		input float64
		want  bool
	}{
		{0, true},
		{-180, true},
		{180, true},
		{55.2708, true},
		{-180.5, false},
		{181, false},
	}
	for _, c := range cases {
		if got := IsValidLongitude(c.input); got != c.want {
			t.Errorf("IsValidLongitude(%v) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidTimeOfDay(t *testing.T) {
	valid := []string{"09:00:00", "00:00:00", "23:59:59"}
	invalid := []string{"24:00:00", "09:00", "9:00:00 AM", "", "midnight"}
	for _, s := range valid {
		if _, ok := IsValidTimeOfDay(s); !ok {
			t.Errorf("IsValidTimeOfDay(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidTimeOfDay(s); ok {
			t.Errorf("IsValidTimeOfDay(%q) = true, want false", s)
		}
	}
}

func TestIsValidDateTime(t *testing.T) {
	valid := []string{"2024-01-15T10:30:00Z", "2024-01-15T10:30:00+07:00"}
	invalid := []string{"2024-01-15 10:30:00", "2024-01-15", ""}
	for _, s := range valid {
		if _, ok := IsValidDateTime(s); !ok {
			t.Errorf("IsValidDateTime(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDateTime(s); ok {
			t.Errorf("IsValidDateTime(%q) = true, want false", s)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "latitude", Message: "invalid"},
		{Field: "selfie_url", Message: "required"},
	}
	got := errs.Error()
	want := "latitude: invalid; selfie_url: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "latitude", Message: "invalid"},
		{Field: "selfie_url", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"latitude": "invalid", "selfie_url": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
