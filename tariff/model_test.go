package tariff

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTariffRate_ActiveOn(t *testing.T) {
	on := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		rate TariffRate
		want bool
	}{
		{"open window", TariffRate{Status: StatusActive}, true},
		{"inactive status", TariffRate{Status: "RETIRED"}, false},
		{"starts today", TariffRate{Status: StatusActive, StartDate: day(2026, 10, 15)}, true},
		{"starts tomorrow", TariffRate{Status: StatusActive, StartDate: day(2026, 10, 16)}, false},
		{"ends today inclusive", TariffRate{Status: StatusActive, EndDate: day(2026, 10, 15)}, true},
		{"ended yesterday", TariffRate{Status: StatusActive, EndDate: day(2026, 10, 14)}, false},
		{"bounded", TariffRate{Status: StatusActive, StartDate: day(2026, 1, 1), EndDate: day(2026, 12, 31)}, true},
	}
	for _, tt := range tests {
		if got := tt.rate.ActiveOn(on); got != tt.want {
			t.Errorf("%s: ActiveOn = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestComponent_Equal(t *testing.T) {
	a := Component{ComponentID: "C1", Description: "bolt", MaterialType: "steel"}
	b := Component{ComponentID: "C1", Description: "renamed", MaterialType: "alloy"}
	c := Component{ComponentID: "C2", Description: "bolt", MaterialType: "steel"}

	if !a.Equal(b) {
		t.Error("components with the same id must be equal")
	}
	if a.Equal(c) {
		t.Error("components with different ids must differ")
	}
}

func TestNormalizeTerritory(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"CHN", "CHN", false},
		{"chn", "CHN", false},
		{" usa ", "USA", false},
		{"", "", true},
		{"CN", "", true},
		{"CHINA", "", true},
		{"ÇHN", "ÇHN", false},
		{"ÇH", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeTerritory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeTerritory(%q) error = %v", tt.in, err)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NormalizeTerritory(%q) error = %v, want ErrInvalidArgument", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeTerritory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEntity(t *testing.T) {
	if got, err := NormalizeEntity("item", " ITEM-001 "); err != nil || got != "ITEM-001" {
		t.Errorf("NormalizeEntity = (%q, %v)", got, err)
	}
	if _, err := NormalizeEntity("item", "  "); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NormalizeEntity(blank) = %v, want ErrInvalidArgument", err)
	}
}

func TestCalculationError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&CalculationError{ItemID: "ITEM-001", TerritoryCode: "CHN", Stage: StageResolvePolicy, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("CalculationError should unwrap to its cause")
	}
	var ce *CalculationError
	if !errors.As(err, &ce) || ce.Stage != StageResolvePolicy {
		t.Errorf("errors.As = %+v", ce)
	}
	want := `tariff: calculation failed for item "ITEM-001" in "CHN" at resolve_policy: connection reset`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
