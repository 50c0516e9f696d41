// Package validation checks registry references printed by the container
// engine before they are recorded in side-cars.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Digest validation for content-addressable storage:
// - Format: algorithm:hex
// - Supported algorithms: sha256 (64 hex chars), sha512 (128 hex chars)
var digestRegex = regexp.MustCompile(`^(sha256:[a-f0-9]{64}|sha512:[a-f0-9]{128})$`)

// Repository path: optional host[:port], then lowercase path components.
var repoRegex = regexp.MustCompile(`^(?:[a-zA-Z0-9.-]+(?::[0-9]+)?/)?[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*$`)

// ValidateDigest validates a content digest.
func ValidateDigest(digest string) error {
	if digest == "" {
		return fmt.Errorf("digest cannot be empty")
	}
	if !digestRegex.MatchString(digest) {
		return fmt.Errorf("invalid digest %q: must be sha256:<64 hex chars> or sha512:<128 hex chars>", digest)
	}
	return nil
}

// IsDigest reports whether digest is a valid content digest.
func IsDigest(digest string) bool {
	return ValidateDigest(digest) == nil
}

// ParseRepoDigest splits "repo@digest" and validates both halves.
func ParseRepoDigest(ref string) (string, string, error) {
	repo, digest, ok := strings.Cut(ref, "@")
	if !ok {
		return "", "", fmt.Errorf("invalid repo digest %q: missing @", ref)
	}
	if !repoRegex.MatchString(repo) {
		return "", "", fmt.Errorf("invalid repository %q in %q", repo, ref)
	}
	if err := ValidateDigest(digest); err != nil {
		return "", "", err
	}
	return repo, digest, nil
}

// LastDigest returns the digest on the last non-empty line of out, which is
// where "manifest push" prints it.
func LastDigest(out string) (string, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	if err := ValidateDigest(last); err != nil {
		return "", err
	}
	return last, nil
}
