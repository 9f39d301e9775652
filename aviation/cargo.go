// aviation/cargo.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
)

// CargoItem is one manifested piece of cargo, normally a built-up ULD.
// WeightKg is the gross weight including the ULD tare and may be revised
// after import (final weights often arrive late); everything else is fixed
// at import time.
type CargoItem struct {
	ID          string  `json:"id"`
	AWB         string  `json:"awb,omitempty"`
	Description string  `json:"description,omitempty"`
	WeightKg    float64 `json:"weight_kg"`

	Handling HandlingClass `json:"handling,omitempty"`

	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination"`

	PreferredDeck Deck   `json:"preferred_deck,omitempty"`
	ULD           string `json:"uld,omitempty"`

	Doors util.SingleOrArray[DoorKind] `json:"doors,omitempty"`
	Flags []HandlingFlag               `json:"flags,omitempty"`

	HeightIn *float64 `json:"height_in,omitempty"`
	MustFly  bool     `json:"must_fly,omitempty"`
}

// ULDSpec returns the catalog entry for the item's ULD type code.
func (c *CargoItem) ULDSpec() (ULDSpec, bool) {
	if c.ULD == "" {
		return ULDSpec{}, false
	}
	return LookupULD(c.ULD)
}

// ULDClass gives the item's device class. Items manifested without a
// ULD code are loose pieces; they carry no class and so no deck
// constraint (doors, height, and capacity still apply).
func (c *CargoItem) ULDClass() ULDClass {
	if spec, ok := c.ULDSpec(); ok {
		return spec.Class
	}
	return ULDClassUnknown
}

func (c *CargoItem) HasFlag(f HandlingFlag) bool {
	return slices.Contains(c.Flags, f)
}

// Manifest is the set of cargo items tendered for one flight, together
// with the flight's route. Route[0] is the departure station; items are
// offloaded at the stop matching their destination.
type Manifest struct {
	Flight   string      `json:"flight,omitempty"`
	Aircraft string      `json:"aircraft,omitempty"`
	Route    []string    `json:"route"`
	Items    []CargoItem `json:"items"`
}

// StopIndex returns the position of the given station in the route, or -1
// if the route doesn't visit it. Items destined for lower indices come
// off the aircraft sooner.
func (m *Manifest) StopIndex(airport string) int {
	return slices.Index(m.Route, airport)
}

// Item returns the manifested item with the given id.
func (m *Manifest) Item(id string) (*CargoItem, bool) {
	for i := range m.Items {
		if m.Items[i].ID == id {
			return &m.Items[i], true
		}
	}
	return nil, false
}

func checkAWB(awb string, e *util.ErrorLogger) {
	// IATA form: 3 digit airline prefix, dash, 8 digit serial.
	prefix, serial, found := strings.Cut(awb, "-")
	if !found || len(prefix) != 3 || len(serial) != 8 ||
		!util.IsAllNumbers(prefix) || !util.IsAllNumbers(serial) {
		e.ErrorString("%q is not a valid air waybill number; expected the form 020-12345678", awb)
	}
}

// PostDeserialize validates the manifest and normalizes items: shouted
// descriptions are tamed, door compatibility and container heights are
// backfilled from the ULD catalog where the manifest leaves them out.
func (m *Manifest) PostDeserialize(e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	if len(m.Route) < 2 {
		e.ErrorString("\"route\" must list the departure station and at least one destination")
	}
	for i, ap := range m.Route {
		if slices.Index(m.Route, ap) != i {
			e.ErrorString("route visits %q twice", ap)
		}
	}

	seen := make(map[string]interface{})
	for i := range m.Items {
		item := &m.Items[i]
		e.Push("Item " + item.ID)

		if item.ID == "" {
			e.ErrorString("item is missing \"id\"")
		}
		if _, ok := seen[item.ID]; ok {
			e.ErrorString("item id appears multiple times")
		}
		seen[item.ID] = nil

		if item.AWB != "" {
			checkAWB(item.AWB, e)
		}
		if item.WeightKg <= 0 || math.IsNaN(item.WeightKg) || math.IsInf(item.WeightKg, 0) {
			e.ErrorString("\"weight_kg\" must be a positive weight; got %v", item.WeightKg)
		}
		if item.HeightIn != nil && *item.HeightIn <= 0 {
			e.ErrorString("\"height_in\" must be positive; got %v", *item.HeightIn)
		}

		item.Description = util.StopShouting(item.Description)

		if item.ULD != "" {
			spec, ok := LookupULD(item.ULD)
			if !ok {
				e.ErrorString("ULD type %q is not in the catalog", item.ULD)
			} else {
				if item.WeightKg > spec.MaxGrossKg {
					e.ErrorString("gross weight %v kg exceeds the %s maximum of %v kg",
						item.WeightKg, spec.Code, spec.MaxGrossKg)
				}
				if len(item.Doors) == 0 {
					item.Doors = spec.Doors
				}
				// Containers are a fixed height; pallet build-up heights
				// have to be manifested.
				if item.HeightIn == nil && spec.Class == ULDContainer && spec.MaxHeightIn != nil {
					h := *spec.MaxHeightIn
					item.HeightIn = &h
				}
			}
		}

		if item.Destination == "" {
			e.ErrorString("item is missing \"destination\"")
		} else if idx := m.StopIndex(item.Destination); idx == -1 {
			e.ErrorString("destination %q is not on the route %v", item.Destination, m.Route)
		} else if idx == 0 {
			e.ErrorString("destination %q is the departure station", item.Destination)
		}

		e.Pop()
	}
}

// LoadManifest parses and validates a JSON manifest. Returns nil if any
// errors were logged.
func LoadManifest(contents []byte, e *util.ErrorLogger) *Manifest {
	defer e.CheckDepth(e.CurrentDepth())

	util.CheckJSON[Manifest](contents, e)
	if e.HaveErrors() {
		return nil
	}

	var m Manifest
	if err := util.UnmarshalJSONBytes(contents, &m); err != nil {
		e.Error(err)
		return nil
	}

	m.PostDeserialize(e)
	if e.HaveErrors() {
		return nil
	}
	return &m
}

// manifestCSVFields are the recognized header columns; id, weight_kg, and
// destination are required.
var manifestCSVFields = []string{"id", "awb", "description", "weight_kg", "handling",
	"origin", "destination", "uld", "preferred_deck", "height_in", "must_fly"}

// LoadManifestCSV builds a manifest from the tabular exports that ground
// handling systems produce. The flight and route aren't part of the CSV
// and are passed alongside. Returns nil if any errors were logged.
func LoadManifestCSV(contents []byte, flight string, route []string, e *util.ErrorLogger) *Manifest {
	defer e.CheckDepth(e.CurrentDepth())

	r := csv.NewReader(bytes.NewReader(contents))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		e.Error(err)
		return nil
	}
	fieldIndex := make(map[string]int)
	for i, f := range header {
		f = strings.ToLower(strings.TrimSpace(f))
		if !slices.Contains(manifestCSVFields, f) {
			e.ErrorString("unknown column %q in CSV header", f)
		}
		fieldIndex[f] = i
	}
	for _, req := range []string{"id", "weight_kg", "destination"} {
		if _, ok := fieldIndex[req]; !ok {
			e.ErrorString("CSV header is missing the %q column", req)
		}
	}
	if e.HaveErrors() {
		return nil
	}

	field := func(record []string, name string) string {
		if i, ok := fieldIndex[name]; ok && i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	m := &Manifest{Flight: flight, Route: route}
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			e.Error(err)
			return nil
		}

		e.Push(fmt.Sprintf("Line %d", line))

		item := CargoItem{
			ID:          field(record, "id"),
			AWB:         field(record, "awb"),
			Description: field(record, "description"),
			Origin:      field(record, "origin"),
			Destination: field(record, "destination"),
			ULD:         field(record, "uld"),
		}

		if w, err := util.Atof(field(record, "weight_kg")); err != nil {
			e.ErrorString("\"weight_kg\": %v", err)
		} else {
			item.WeightKg = w
		}
		if s := field(record, "handling"); s != "" {
			if err := item.Handling.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
				e.Error(err)
			}
		}
		if s := field(record, "preferred_deck"); s != "" {
			if err := item.PreferredDeck.UnmarshalJSON([]byte(strconv.Quote(s))); err != nil {
				e.Error(err)
			}
		}
		if s := field(record, "height_in"); s != "" {
			if h, err := util.Atof(s); err != nil {
				e.ErrorString("\"height_in\": %v", err)
			} else {
				item.HeightIn = &h
			}
		}
		switch strings.ToLower(field(record, "must_fly")) {
		case "", "0", "n", "no", "false":
		case "1", "y", "yes", "true":
			item.MustFly = true
		default:
			e.ErrorString("%q is not understood for \"must_fly\"", field(record, "must_fly"))
		}

		m.Items = append(m.Items, item)
		e.Pop()
	}

	m.PostDeserialize(e)
	if e.HaveErrors() {
		return nil
	}
	return m
}
