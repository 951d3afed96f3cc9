package tools

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// SystemStats summarizes host load and memory for get_system_stats.
// On Linux it reads /proc; elsewhere it degrades to what the runtime
// can see.
func SystemStats() string {
	var parts []string

	if load, err := os.ReadFile("/proc/loadavg"); err == nil {
		fields := strings.Fields(string(load))
		if len(fields) >= 3 {
			parts = append(parts, fmt.Sprintf("Load: %s %s %s", fields[0], fields[1], fields[2]))
		}
	}

	if mem, err := os.ReadFile("/proc/meminfo"); err == nil {
		total, avail := parseMeminfo(string(mem))
		if total > 0 {
			parts = append(parts, fmt.Sprintf("RAM Used: %dMB/%dMB", (total-avail)/1024, total/1024))
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	parts = append(parts, fmt.Sprintf("Process: %dMB heap, %d goroutines, %d CPUs",
		ms.HeapAlloc/(1<<20), runtime.NumGoroutine(), runtime.NumCPU()))

	return strings.Join(parts, "\n")
}

// parseMeminfo extracts MemTotal and MemAvailable in kB.
func parseMeminfo(s string) (total, avail int64) {
	for _, line := range strings.Split(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = v
		case "MemAvailable:":
			avail = v
		}
	}
	return total, avail
}
