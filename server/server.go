// server/server.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"net"
	"net/rpc"
	"os"
	"strconv"

	"github.com/Embraer145/LoadMaster-Ai-sub001/aviation"
	"github.com/Embraer145/LoadMaster-Ai-sub001/log"
	"github.com/Embraer145/LoadMaster-Ai-sub001/util"
	"github.com/Embraer145/LoadMaster-Ai-sub001/wb"
)

// Version history
// 1: initial remote protocol: manifest import, placement, state snapshots
// 2: optimizer control and event polling, fuel and station weight RPCs
// 3: height constraints, door check override in Place, autosave restore
const LoadmasterSerializeVersion = 3

const LoadmasterServerPort = 8000 + LoadmasterRPCVersion
const LoadmasterRPCVersion = LoadmasterSerializeVersion
const LoadmasterHTTPServerPort = 6502

type ServerLaunchConfig struct {
	Port         int // if 0, finds an open one
	TemplateDirs []string
	SettingsPath string
	Local        bool
}

func LaunchServer(config ServerLaunchConfig, lg *log.Logger) {
	util.MonitorCPUUsage(95, true /* panic if wedged */, lg)
	util.MonitorMemoryUsage(128 /* trigger MB */, 64 /* delta MB */, lg)

	// Autosaves accumulate one file per expired plan.
	if err := util.CacheCullObjects(256 * 1024 * 1024); err != nil {
		lg.Warnf("unable to cull cache: %v", err)
	}

	_, server, e := makeServer(config, lg)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}
	server()
}

func LaunchServerAsync(config ServerLaunchConfig, lg *log.Logger) (int, util.ErrorLogger) {
	rpcPort, server, e := makeServer(config, lg)
	if e.HaveErrors() {
		return 0, e
	}

	go server()

	return rpcPort, e
}

func makeServer(config ServerLaunchConfig, lg *log.Logger) (int, func(), util.ErrorLogger) {
	var listener net.Listener
	var err error
	var errorLogger util.ErrorLogger
	var rpcPort int
	if config.Port == 0 {
		if listener, err = net.Listen("tcp", ":0"); err != nil {
			errorLogger.Error(err)
			return 0, nil, errorLogger
		}
		rpcPort = listener.Addr().(*net.TCPAddr).Port
	} else if listener, err = net.Listen("tcp", ":"+strconv.Itoa(config.Port)); err == nil {
		rpcPort = config.Port
	} else {
		errorLogger.Error(err)
		return 0, nil, errorLogger
	}

	// Broken templates and settings surface now, not when the first client
	// asks for them.
	registry := aviation.NewRegistry(config.TemplateDirs, lg)
	if err := registry.LoadAll(); err != nil {
		errorLogger.Error(err)
		return 0, nil, errorLogger
	}
	tuning, err := wb.LoadTuning(config.SettingsPath)
	if err != nil {
		errorLogger.Error(err)
		return 0, nil, errorLogger
	}

	serverFunc := func() {
		server := rpc.NewServer()

		pm := NewPlanManager(registry, tuning, config.Local, lg)
		if err := server.Register(pm); err != nil {
			lg.Errorf("unable to register PlanManager: %v", err)
			os.Exit(1)
		}
		if err := server.RegisterName("Plan", &dispatcher{pm: pm}); err != nil {
			lg.Errorf("unable to register dispatcher: %v", err)
			os.Exit(1)
		}

		lg.Infof("Listening on %+v", listener)

		for {
			conn, err := listener.Accept()
			if err != nil {
				lg.Errorf("Accept error: %v", err)
			} else if cc, err := util.MakeCompressedConn(util.MakeLoggingConn(conn, lg)); err != nil {
				lg.Errorf("MakeCompressedConn: %v", err)
			} else {
				lg.Infof("%s: new connection", conn.RemoteAddr())
				codec := util.MakeMessagepackServerCodec(cc, lg)
				codec = util.MakeLoggingServerCodec(conn.RemoteAddr().String(), codec, lg)
				go server.ServeCodec(codec)
			}
		}
	}

	return rpcPort, serverFunc, errorLogger
}
