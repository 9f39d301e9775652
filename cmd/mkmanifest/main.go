// cmd/mkmanifest/main.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// mkmanifest generates a randomized cargo manifest for an aircraft type,
// for exercising the planner without waiting on real tendered freight.

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/rand"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"

	"github.com/brunoga/deep"
)

var goods = []string{
	"machine parts", "frozen salmon", "mail", "e-commerce parcels",
	"pharmaceuticals", "cut flowers", "live king crab", "oilfield equipment",
	"automotive components", "general freight", "printed matter", "chilled seafood",
}

var airports = []string{"ANC", "SEA", "ICN", "NRT", "HKG", "ORD", "FRA", "LEJ", "SDF", "MEM"}

func main() {
	nitems := flag.Int("items", 0, "number of cargo items to generate (default: positions + 2)")
	seed := flag.Int64("seed", 0, "random seed, for reproducible manifests")
	flight := flag.String("flight", "", "flight designator (default: a random LM flight)")
	routeFlag := flag.String("route", "", "comma-separated route (default: a random two-stop route)")
	flag.Parse()

	if len(flag.Args()) != 1 {
		fmt.Printf("usage: mkmanifest [-items n] [-seed s] [-flight f] [-route a,b,c] <aircraft-type>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *seed != 0 {
		rand.Seed(*seed)
	}

	registry := aviation.NewRegistry(nil, nil)
	cfg, err := registry.Aircraft(flag.Arg(0))
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	var route []string
	if *routeFlag != "" {
		route = util.MapSlice(strings.Split(*routeFlag, ","), strings.TrimSpace)
	} else {
		for _, ap := range rand.PermuteSlice(airports, rand.Uint32()) {
			if route = append(route, ap); len(route) == 3 {
				break
			}
		}
	}
	if *flight == "" {
		*flight = fmt.Sprintf("LM%d", 100+rand.Intn(900))
	}

	n := *nitems
	if n == 0 {
		n = len(cfg.Positions) + 2
	}

	catalog := aviation.ULDCatalog()
	codes := util.SortedMapKeys(catalog)

	var items []aviation.CargoItem
	for i := range n {
		item := aviation.CargoItem{
			Description: rand.SampleSlice(goods),
			Destination: route[1+rand.Intn(len(route)-1)],
			MustFly:     rand.Float32() < 0.15,
		}

		if rand.Float32() < 0.75 {
			code := rand.SampleSlice(codes)
			spec := catalog[code]
			item.ULD = code
			item.ID = fmt.Sprintf("%s%05dLM", code, 10000+i)
			load := (0.15 + 0.75*rand.Float64()) * (spec.MaxGrossKg - spec.TareKg)
			item.WeightKg = math.Round(spec.TareKg + load)
			// Pallet build-up heights have to be manifested; containers
			// take theirs from the catalog.
			if spec.Class == aviation.ULDPallet && rand.Float32() < 0.7 {
				h := float64(40 + rand.Intn(57))
				item.HeightIn = &h
			}
		} else {
			item.ID = fmt.Sprintf("PCS%03d", i+1)
			item.WeightKg = float64(50 + rand.Intn(1950))
		}

		if rand.Float32() < 0.6 {
			item.AWB = fmt.Sprintf("%03d-%08d", 20+rand.Intn(980), rand.Intn(100000000))
		}
		if rand.Float32() < 0.3 {
			item.Handling = rand.Sample(aviation.HandlingPerishable, aviation.HandlingHazmat,
				aviation.HandlingPriority, aviation.HandlingMail)
		}
		if item.Handling == aviation.HandlingPerishable && rand.Float32() < 0.3 {
			item.Flags = []aviation.HandlingFlag{aviation.FlagLiveAnimals}
		} else if rand.Float32() < 0.1 {
			item.Flags = []aviation.HandlingFlag{rand.Sample(aviation.FlagTopLoadOnly,
				aviation.FlagDoNotStack, aviation.FlagKeepUpright)}
		}

		items = append(items, item)
	}

	manifest := &aviation.Manifest{
		Flight:   *flight,
		Aircraft: cfg.Name,
		Route:    route,
		Items:    items,
	}

	// Validate a copy; PostDeserialize backfills fields that are better
	// left to the importer.
	check := deep.MustCopy(*manifest)
	var e util.ErrorLogger
	check.PostDeserialize(&e)
	if e.HaveErrors() {
		fmt.Printf("generated manifest fails validation:\n%s\n", e.String())
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")
	if err := enc.Encode(manifest); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
