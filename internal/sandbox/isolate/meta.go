package isolate

import (
	"log/slog"
	"strconv"
	"strings"
)

// metadata is the parsed form of isolate's post-run report: one key:value
// per line. Unknown keys are ignored; unparseable numbers default to zero
// with a warning so a mangled report degrades instead of aborting the job.
type metadata struct {
	Time     float64 // cpu seconds
	Memory   uint64  // KB; cg-mem wins over max-rss when both appear
	ExitCode int
	Message  string
	Status   string // "TO", "SG", "RE", "XX", or "" for a clean exit
}

func parseMetadata(data []byte) metadata {
	var m metadata
	sawCgMem := false
	for _, line := range strings.Split(string(data), "\n") {
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		switch key {
		case "time":
			m.Time = parseFloat(key, val)
		case "max-rss":
			if !sawCgMem {
				m.Memory = parseUint(key, val)
			}
		case "cg-mem":
			m.Memory = parseUint(key, val)
			sawCgMem = true
		case "exitcode":
			m.ExitCode = parseInt(key, val)
		case "message":
			m.Message = val
		case "status":
			m.Status = val
		}
	}
	return m
}

func parseFloat(key, val string) float64 {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		slog.Warn("unparseable metadata value", slog.String("key", key), slog.String("value", val))
		return 0
	}
	return f
}

func parseUint(key, val string) uint64 {
	u, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		slog.Warn("unparseable metadata value", slog.String("key", key), slog.String("value", val))
		return 0
	}
	return u
}

func parseInt(key, val string) int {
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("unparseable metadata value", slog.String("key", key), slog.String("value", val))
		return 0
	}
	return n
}
