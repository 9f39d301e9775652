// aviation/uld.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"sync"

	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

// ULDClass distinguishes the broad categories of unit load devices that
// matter for position compatibility.
type ULDClass int

const (
	ULDClassUnknown ULDClass = iota
	ULDContainer
	ULDPallet
	ULDBulk
)

func (c ULDClass) String() string {
	return []string{"unknown", "container", "pallet", "bulk"}[c]
}

func (c ULDClass) MarshalJSON() ([]byte, error) {
	switch c {
	case ULDContainer:
		return []byte("\"container\""), nil
	case ULDPallet:
		return []byte("\"pallet\""), nil
	case ULDBulk:
		return []byte("\"bulk\""), nil
	default:
		return nil, fmt.Errorf("%d: unknown ULD class", c)
	}
}

func (c *ULDClass) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "\"container\"":
		*c = ULDContainer
	case "\"pallet\"":
		*c = ULDPallet
	case "\"bulk\"":
		*c = ULDBulk
	default:
		return fmt.Errorf("%s: unknown ULD class", string(b))
	}
	return nil
}

// ULDSpec describes one IATA unit load device type. Tare weight is
// included in the manifested gross weight of an item, so the computation
// engine doesn't consult it; it is carried for manifest validation and
// the loadsheet.
type ULDSpec struct {
	Code        string                       `json:"code,omitempty"`
	Name        string                       `json:"name"`
	Class       ULDClass                     `json:"class"`
	TareKg      float64                      `json:"tare_kg"`
	MaxGrossKg  float64                      `json:"max_gross_kg"`
	Footprint   string                       `json:"footprint,omitempty"`
	MaxHeightIn *float64                     `json:"max_height_in,omitempty"`
	Doors       util.SingleOrArray[DoorKind] `json:"doors,omitempty"`
	Notes       string                       `json:"notes,omitempty"`
}

var (
	uldCatalogOnce sync.Once
	uldCatalog     map[string]ULDSpec
)

// ULDCatalog returns the shipped catalog of ULD types, indexed by IATA
// type code. In the resource file, interchangeable types share an entry
// under a comma-separated key ("AKE,AVE,DVE"); the catalog is expanded so
// each code resolves individually.
func ULDCatalog() map[string]ULDSpec {
	uldCatalogOnce.Do(func() {
		b := util.LoadResourceBytes("uld/catalog.json")

		var raw struct {
			ULDs map[string]ULDSpec `json:"ulds"`
		}
		if err := util.UnmarshalJSONBytes(b, &raw); err != nil {
			panic("uld/catalog.json: " + err.Error())
		}

		var err error
		uldCatalog, err = util.CommaKeyExpand(raw.ULDs)
		if err != nil {
			panic("uld/catalog.json: " + err.Error())
		}
		for code, spec := range uldCatalog {
			spec.Code = code
			if spec.MaxGrossKg <= spec.TareKg {
				panic(fmt.Sprintf("uld/catalog.json: %s: max gross %v must exceed tare %v",
					code, spec.MaxGrossKg, spec.TareKg))
			}
			uldCatalog[code] = spec
		}
	})
	return uldCatalog
}

// LookupULD resolves a ULD type code like "PMC" or "AKE".
func LookupULD(code string) (ULDSpec, bool) {
	spec, ok := ULDCatalog()[code]
	return spec, ok
}
