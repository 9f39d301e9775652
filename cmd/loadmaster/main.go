// cmd/loadmaster/main.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// This file contains the implementation of the main() function, which
// parses the command line and then hands control to the selected mode.

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/plan"
	"github.com/Embraer145/LoadMaster-Ai-sub001/rand"
	"github.com/Embraer145/LoadMaster-Ai-sub001/server"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"

	"github.com/goforj/godump"
)

var (
	logLevel     = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory")
	lintConfigs  = flag.Bool("lint", false, "check the validity of the aircraft templates and exit")
	runServer    = flag.Bool("runserver", false, "run the loadmaster plan server")
	serverPort   = flag.Int("port", server.LoadmasterServerPort, "port to listen on when running the server")
	configDir    = flag.String("configdir", "", "directory with additional aircraft template JSON files")
	settingsPath = flag.String("settings", "", "path to an optimizer tuning JSON file")
	manifestFile = flag.String("loadsheet", "", "compute and print the loadsheet for the given manifest file")
	optimizeMode = flag.String("optimize", "", "with -loadsheet, place the cargo first: safety, fuel_efficiency, or unload_efficiency")
	flightName   = flag.String("flight", "", "flight designator for CSV manifests, which don't carry one")
	routeFlag    = flag.String("route", "", "comma-separated route for CSV manifests (e.g. SEA,ANC,ICN)")
	seed         = flag.Int64("seed", 0, "seed for random name generation")
)

func main() {
	flag.Parse()

	lg := log.New(*runServer, *logLevel, *logDir)

	if *seed != 0 {
		rand.Seed(*seed)
	}

	var templateDirs []string
	if *configDir != "" {
		templateDirs = append(templateDirs, *configDir)
	}

	if *lintConfigs {
		lint(templateDirs, lg)
	} else if *manifestFile != "" {
		printLoadsheet(*manifestFile, *optimizeMode, templateDirs, lg)
	} else if *runServer {
		server.LaunchServer(server.ServerLaunchConfig{
			Port:         *serverPort,
			TemplateDirs: templateDirs,
			SettingsPath: *settingsPath,
			Local:        false,
		}, lg)
	} else {
		fmt.Fprintln(os.Stderr, "usage: loadmaster -lint | -loadsheet manifest [-optimize mode] | -runserver")
		flag.PrintDefaults()
		os.Exit(1)
	}
}

// lint loads every aircraft template and the tuning file so that broken
// JSON is reported here rather than when the first client asks for it.
func lint(templateDirs []string, lg *log.Logger) {
	registry := aviation.NewRegistry(templateDirs, lg)
	if err := registry.LoadAll(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if _, err := wb.LoadTuning(*settingsPath); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *settingsPath, err)
		os.Exit(1)
	}

	for _, name := range registry.List() {
		cfg, err := registry.Aircraft(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("%s (%s): %d positions, %d stations\n", name, cfg.FullName,
			len(cfg.Positions), len(cfg.Stations))
	}
}

func loadManifestFile(path string) *aviation.Manifest {
	contents, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	var e util.ErrorLogger
	var manifest *aviation.Manifest
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		if *routeFlag == "" {
			fmt.Fprintf(os.Stderr, "%s: CSV manifests don't carry a route; pass one with -route\n", path)
			os.Exit(1)
		}
		manifest = aviation.LoadManifestCSV(contents, *flightName, strings.Split(*routeFlag, ","), &e)
	} else {
		manifest = aviation.LoadManifest(contents, &e)
	}
	if e.HaveErrors() {
		e.PrintErrors(nil)
		os.Exit(1)
	}
	return manifest
}

func printLoadsheet(path, modeName string, templateDirs []string, lg *log.Logger) {
	manifest := loadManifestFile(path)
	if manifest.Aircraft == "" {
		fmt.Fprintf(os.Stderr, "%s: manifest doesn't name an aircraft type\n", path)
		os.Exit(1)
	}

	registry := aviation.NewRegistry(templateDirs, lg)
	cfg, err := registry.Aircraft(manifest.Aircraft)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	tuning, err := wb.LoadTuning(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *settingsPath, err)
		os.Exit(1)
	}

	name := manifest.Flight
	if name == "" {
		name = "offline"
	}
	p := plan.New(name, cfg, tuning, lg)
	defer p.Destroy()
	if err := p.ImportManifest(manifest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if modeName != "" {
		optimize(p, manifest, cfg, tuning, modeName)
	}

	fmt.Print(p.Loadsheet())
}

// optimize runs a placement pass over the manifest and applies the
// resulting assignment to the plan, reporting each decision as it is
// made.
func optimize(p *plan.Plan, manifest *aviation.Manifest, cfg *aviation.Config, tuning wb.Tuning, modeName string) {
	var mode wb.OptimizeMode
	switch modeName {
	case "safety":
		mode = wb.ModeSafety
	case "fuel_efficiency":
		mode = wb.ModeFuelEfficiency
	case "unload_efficiency":
		mode = wb.ModeUnloadEfficiency
	default:
		fmt.Fprintf(os.Stderr,
			"%s: unknown optimize mode; expected safety, fuel_efficiency, or unload_efficiency\n", modeName)
		os.Exit(1)
	}

	o := wb.NewOptimizer(wb.OptimizeRequest{
		Positions: wb.MakeLoadedPositions(cfg),
		Pool:      util.MapSlice(manifest.Items, func(it aviation.CargoItem) *aviation.CargoItem { return &it }),
		Stations:  wb.MakeStationLoads(cfg),
		Config:    cfg,
		Route:     manifest.Route,
		Mode:      mode,
		Tuning:    tuning,
	})
	for {
		step, ok := o.Next()
		if !ok {
			break
		}
		fmt.Printf("%-10s -> %-4s score %.3f\n", step.Item.ID, step.PositionID, step.Score)
		if err := p.Place(step.Item.ID, step.PositionID, wb.CheckOptions{}); err != nil {
			fmt.Fprintf(os.Stderr, "%s at %s: %v\n", step.Item.ID, step.PositionID, err)
			os.Exit(1)
		}
	}

	result := o.Result()
	for _, item := range result.StillUnplaced {
		fmt.Printf("%-10s unplaced: no admissible position\n", item.ID)
	}
	godump.Dump(result.Final)
}
