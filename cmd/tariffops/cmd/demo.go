package cmd

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jonwraymond/tariffops/store/memory"
	"github.com/jonwraymond/tariffops/tariff"
)

// demoPolicyVersion is the policy version every demo rate references.
var demoPolicyVersion = uuid.MustParse("9b2f6c3e-7a41-4d8e-b0c5-2e6f8a1d4c70")

// demoRecords returns ITEM-001, a laptop of five components, with rates in
// CHN and USA under a MAXIMUM policy. C5 has no CHN rate.
func demoRecords() *memory.Store {
	start := time.Now().UTC().AddDate(-1, 0, 0)

	s := memory.New()
	s.AddPolicyVersion(memory.PolicyVersion{
		ID:          demoPolicyVersion,
		Description: "Maximum of item and component rates",
		StartDate:   start,
	})
	s.AddComponents("ITEM-001",
		tariff.Component{ComponentID: "C1", Description: "Mainboard", MaterialType: "electronics"},
		tariff.Component{ComponentID: "C2", Description: "Display panel", MaterialType: "electronics"},
		tariff.Component{ComponentID: "C3", Description: "Aluminium casing", MaterialType: "metal"},
		tariff.Component{ComponentID: "C4", Description: "Battery pack", MaterialType: "chemical"},
		tariff.Component{ComponentID: "C5", Description: "Keyboard", MaterialType: "plastic"},
	)

	rates := []struct {
		entity, territory, rate, level string
	}{
		{"ITEM-001", "CHN", "0.05", "1"},
		{"C1", "CHN", "0.01", "2"},
		{"C2", "CHN", "0.02", "2"},
		{"C3", "CHN", "0.03", "2"},
		{"C4", "CHN", "0.04", "2"},
		{"ITEM-001", "USA", "0.025", "1"},
		{"C1", "USA", "0.005", "2"},
		{"C5", "USA", "0.0075", "2"},
	}
	for _, r := range rates {
		_ = s.AddRate(tariff.TariffRate{
			TariffID:        uuid.NewSHA1(demoPolicyVersion, []byte(r.entity+r.territory)).String(),
			Rate:            decimal.RequireFromString(r.rate),
			Level:           r.level,
			EntityID:        r.entity,
			TerritoryCode:   r.territory,
			StartDate:       &start,
			Status:          tariff.StatusActive,
			PolicyVersionID: demoPolicyVersion.String(),
		})
	}
	return s
}
