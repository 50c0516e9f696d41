package command

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/2cd/getctr/internal/domain"
)

// fallbackDirs are searched when the helper is not on PATH.
var fallbackDirs = []string{"/usr/bin", "/usr/local/bin", "/bin", "/sbin"}

// DetectEscalation finds doas or sudo, preferring doas. It returns
// domain.EscalationNone when neither exists.
func DetectEscalation() domain.EscalationHelper {
	return detectEscalation(exec.LookPath, fileExists)
}

func detectEscalation(lookPath func(string) (string, error), exists func(string) bool) domain.EscalationHelper {
	for _, h := range []domain.EscalationHelper{domain.EscalationDoas, domain.EscalationSudo} {
		if commandExists(string(h), lookPath, exists) {
			return h
		}
	}
	return domain.EscalationNone
}

func commandExists(name string, lookPath func(string) (string, error), exists func(string) bool) bool {
	if _, err := lookPath(name); err == nil {
		return true
	}
	for _, dir := range fallbackDirs {
		if exists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
