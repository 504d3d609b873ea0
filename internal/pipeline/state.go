// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/pdiddy/goodnews-engine/pkg/types"
)

// State is a stage of the run state machine.
type State int32

const (
	StateIdle State = iota
	StateQueryingSources
	StateDeduplicating
	StateClassifying
	StateSummarizing
	StatePersisting
	StateMaintenanceSweep
)

var stateNames = [...]string{
	StateIdle:             "idle",
	StateQueryingSources:  "querying-sources",
	StateDeduplicating:    "deduplicating",
	StateClassifying:      "classifying",
	StateSummarizing:      "summarizing",
	StatePersisting:       "persisting",
	StateMaintenanceSweep: "maintenance-sweep",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// Mode selects how far back and how deep a run searches.
type Mode string

const (
	ModeLight Mode = "light"
	ModeFull  Mode = "full"
)

// ParseMode accepts "light" or "full", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLight, ModeFull:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want light or full)", s)
	}
}

func (m Mode) params(cfg types.PipelineConfig) (types.ModeConfig, error) {
	switch m {
	case ModeLight:
		return cfg.Light, nil
	case ModeFull:
		return cfg.Full, nil
	default:
		return types.ModeConfig{}, fmt.Errorf("unknown mode %q", string(m))
	}
}
