package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultYardItems are the sister-ship yard items offered on the submit form.
var DefaultYardItems = []string{
	"0101 - Pilot House Windows",
	"0104 - Exterior Deck Coatings",
	"0110 - Misc Welding Repairs",
	"0113 - Main Deck Inspection & Steel",
	"0114 - Bow Thruster Exhaust Insulation",
	"0115 - Main Deck Exhaust Painting",
	"0117 - Frames 66/70 for GMS Installation",
	"0310 - Electrical Panel Load Survey",
	"0401 - Ships Horn Installation",
	"0502 - Deck Crane Maintenance",
	"0503 - Rebuild Steering Cylinders",
	"0604 - Replace Countertops & Sinks",
	"0605 - Replace Stateroom Toilets",
	"0701 - Aft GMS Installation",
	"0702 - Weapons Maintenance Area",
	"0703 - Main Deck Magazine Repairs",
	"0705 - Deck Container Painting",
	"0958 - Propeller Clean/Polish & Hull",
}

// DefaultDraftItems are the pre-planned drafts DRAFT_0001 to DRAFT_0019.
// Generated draft numbers start after them.
var DefaultDraftItems = []string{
	"DRAFT_0001 - Replace All A/C Units",
	"DRAFT_0002 - Replace Immersion Suits",
	"DRAFT_0003 - Main Deck ARMAG Mods",
	"DRAFT_0004 - Remove Unused Cabling/Rewire",
	"DRAFT_0005 - Galley Gaylord Hood Clean/Reseal",
	"DRAFT_0006 - Chemical Drain Clean & MSD Service",
	"DRAFT_0007 - Replace Angle Drive Spider Gear",
	"DRAFT_0008 - Load Bank on SSDGs & Switchboard Breakers",
	"DRAFT_0009 - EMI Steering Upgrades",
	"DRAFT_0010 - Red Gear Shaft Drive Pumps",
	"DRAFT_0011 - Potable Water Pumps Replacement",
	"DRAFT_0012 - Refurbish Fire Trunk Fire Barriers",
	"DRAFT_0013 - Fuel Piping Mount 14S",
	"DRAFT_0014 - ATOS Valves Quantum",
	"DRAFT_0015 - Reband Wire Runs on Mast",
	"DRAFT_0016 - Gyro Sensitive Elements Replacement",
	"DRAFT_0017 - Head Tank Sight Glasses/Valves/Murphy Switches",
	"DRAFT_0018 - Annex Passageway Floor Bubble Repair",
	"DRAFT_0019 - Add Smoke Detector/Phone to Conference",
}

// Catalogue lists the item numbers offered as choices on the submit form.
type Catalogue struct {
	YardItems  []string `yaml:"yard_items"`
	DraftItems []string `yaml:"draft_items"`
}

// LoadCatalogue reads the catalogue from a YAML file. A missing path yields
// the built-in lists, and a list left out of the file keeps its default.
func LoadCatalogue(path string) (Catalogue, error) {
	cat := Catalogue{
		YardItems:  append([]string(nil), DefaultYardItems...),
		DraftItems: append([]string(nil), DefaultDraftItems...),
	}
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("read item catalogue: %w", err)
	}
	var file Catalogue
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalogue{}, fmt.Errorf("parse item catalogue %s: %w", path, err)
	}
	if file.YardItems != nil {
		cat.YardItems = file.YardItems
	}
	if file.DraftItems != nil {
		cat.DraftItems = file.DraftItems
	}
	return cat, nil
}
