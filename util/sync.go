// util/sync.go
// Copyright(c) 2024-2026 loadmaster contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/Embraer145/LoadMaster-Ai-sub001/log"

	"github.com/shirou/gopsutil/v3/cpu"
)

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

var heldMutexesMutex sync.Mutex
var heldMutexes map[*LoggingMutex]interface{} = make(map[*LoggingMutex]interface{})

type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()
	lg.Debug("attempting to acquire mutex", slog.Any("mutex", l))

	if !l.Mutex.TryLock() {
		// Lock with timeout.
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		// Everything takes much longer under the race detector.
		timeout := Select(log.RaceEnabled, 40*time.Second, 10*time.Second)

		select {
		case <-locked:

		case <-time.After(timeout):
			lg.Error("unable to acquire mutex after timeout", slog.Any("mutex", l),
				slog.Duration("timeout", timeout), slog.Any("held_mutexes", heldMutexes))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			usage, _ := cpu.Percent(time.Second, false)

			lg.Errorf("CPU: %d%% alloc: %dMB total alloc: %dMB sys mem: %dMB goroutines: %d",
				int(gomath.Round(usage[0])), m.Alloc/(1024*1024), m.TotalAlloc/(1024*1024), m.Sys/(1024*1024),
				runtime.NumGoroutine())
		}
	}

	heldMutexesMutex.Lock()
	heldMutexes[l] = nil
	heldMutexesMutex.Unlock()

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	w := l.acq.Sub(tryTime)
	lg.Debug("acquired mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	if w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	heldMutexesMutex.Lock()
	// Though it may seem like we could unlock this sooner, holding it
	// until this function returns ensures that if we end up doing logging
	// in the code below, other mutexes aren't unlocked while we're trying
	// to log the held ones.
	defer heldMutexesMutex.Unlock()

	if _, ok := heldMutexes[l]; !ok {
		lg.Error("mutex not held", slog.Any("held_mutexes", heldMutexes))
	}
	delete(heldMutexes, l)

	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d),
			slog.Any("held_mutexes", heldMutexes))
	}

	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()

	lg.Debug("released mutex", slog.Any("mutex", l))
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}

///////////////////////////////////////////////////////////////////////////
// Resource usage monitoring

// MonitorCPUUsage launches a goroutine that periodically samples overall
// CPU utilization and logs a warning when it is above the given percentage
// threshold. If panicIfWedged is true, sustained load above the threshold
// causes a panic so that the crash handler records stacks of what is
// presumably a wedged process.
func MonitorCPUUsage(threshold int, panicIfWedged bool, lg *log.Logger) {
	go func() {
		var over int
		for {
			usage, err := cpu.Percent(time.Minute, false)
			if err != nil || len(usage) == 0 {
				lg.Warnf("unable to sample CPU usage: %v", err)
				return
			}

			if int(gomath.Round(usage[0])) < threshold {
				over = 0
				continue
			}

			over++
			lg.Warn("high CPU usage", slog.Float64("usage", usage[0]),
				slog.Int("threshold", threshold), slog.Int("consecutive_minutes", over))

			if panicIfWedged && over >= 5 {
				panic("sustained high CPU usage")
			}
		}
	}()
}

// MonitorMemoryUsage launches a goroutine that logs when allocated memory
// first passes triggerMB and then again each time it grows by another
// deltaMB beyond the last report.
func MonitorMemoryUsage(triggerMB, deltaMB int, lg *log.Logger) {
	go func() {
		nextMB := uint64(triggerMB)
		for {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			if allocMB := m.Alloc / (1024 * 1024); allocMB >= nextMB {
				lg.Warn("memory usage", slog.Uint64("alloc_mb", allocMB),
					slog.Uint64("total_alloc_mb", m.TotalAlloc/(1024*1024)),
					slog.Uint64("sys_mb", m.Sys/(1024*1024)),
					slog.Int("goroutines", runtime.NumGoroutine()))
				nextMB = allocMB + uint64(deltaMB)
			}

			time.Sleep(15 * time.Second)
		}
	}()
}
