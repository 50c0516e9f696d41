package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/2cd/getctr/internal/adapters/out/catalog"
	"github.com/2cd/getctr/internal/adapters/out/command"
	"github.com/2cd/getctr/internal/domain"
)

// RuntimeEnv holds values computed once at process start.
type RuntimeEnv struct {
	Now time.Time
	// Today is Now as an ISO date, used by date-tagged releases.
	Today      string
	Escalation domain.EscalationHelper
	// CN selects regional mirrors, from LANG.
	CN bool
	// ScriptDir is $DEBOOTSTRAP_DIR/scripts, empty when DEBOOTSTRAP_DIR is unset.
	ScriptDir string
}

// NewRuntimeEnv inspects the process environment.
func NewRuntimeEnv() RuntimeEnv {
	return newRuntimeEnv(time.Now(), os.Getenv, command.DetectEscalation)
}

func newRuntimeEnv(now time.Time, getenv func(string) string, detect func() domain.EscalationHelper) RuntimeEnv {
	now = now.UTC()
	env := RuntimeEnv{
		Now:        now,
		Today:      now.Format(time.DateOnly),
		Escalation: detect(),
		CN:         catalog.IsCN(getenv("LANG")),
	}
	if dir := getenv("DEBOOTSTRAP_DIR"); dir != "" {
		env.ScriptDir = filepath.Join(dir, "scripts")
	}
	return env
}
