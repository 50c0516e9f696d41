// Package archmap maps architecture aliases to OCI platforms and Debian
// architecture names.
package archmap

import "strings"

var ociPlatforms = map[string]string{
	"aarch32":     "linux/arm/v7",
	"aarch64":     "linux/arm64",
	"alpha":       "linux/alpha",
	"amd64":       "linux/amd64",
	"arm":         "linux/arm/v6",
	"arm64":       "linux/arm64",
	"armv3":       "linux/arm/v3",
	"armv4":       "linux/arm/v4",
	"armv4t":      "linux/arm/v4",
	"armv5":       "linux/arm/v5",
	"armv5t":      "linux/arm/v5",
	"armv5te":     "linux/arm/v5",
	"armv6":       "linux/arm/v6",
	"armv7":       "linux/arm/v7",
	"armv7a":      "linux/arm/v7",
	"armv7l":      "linux/arm/v7",
	"armv8a":      "linux/arm64",
	"armv8m":      "linux/arm/v7",
	"armv9":       "linux/arm64",
	"hppa":        "linux/hppa",
	"i386":        "linux/386",
	"i486":        "linux/386",
	"i586":        "linux/386",
	"i686":        "linux/386",
	"ia64":        "linux/ia64",
	"loong64":     "linux/loong64",
	"loongarch64": "linux/loong64",
	"lpia":        "linux/386",
	"m68k":        "linux/m68k",
	"mips":        "linux/mips",
	"mips64":      "linux/mips64",
	"mips64be":    "linux/mips64",
	"mips64el":    "linux/mips64le",
	"mips64le":    "linux/mips64le",
	"mipsbe":      "linux/mips",
	"mipsel":      "linux/mipsle",
	"mipsle":      "linux/mipsle",
	"powerpc":     "linux/ppc",
	"powerpc64":   "linux/ppc64",
	"powerpc64el": "linux/ppc64le",
	"powerpc64le": "linux/ppc64le",
	"ppc":         "linux/ppc",
	"ppc64":       "linux/ppc64",
	"ppc64el":     "linux/ppc64le",
	"ppc64le":     "linux/ppc64le",
	"riscv64":     "linux/riscv64",
	"riscv64gc":   "linux/riscv64",
	"rv64":        "linux/riscv64",
	"rv64gc":      "linux/riscv64",
	"rv64imafdc":  "linux/riscv64",
	"s390":        "linux/s390",
	"s390x":       "linux/s390x",
	"sh4":         "linux/sh4",
	"sparc":       "linux/sparc",
	"sparc64":     "linux/sparc64",
	"x32":         "linux/amd64p32",
	"x64":         "linux/amd64",
	"x64v2":       "linux/amd64/v2",
	"x64v3":       "linux/amd64/v3",
	"x64v4":       "linux/amd64/v4",
	"x86":         "linux/386",
	"x86-64-v2":   "linux/amd64/v2",
	"x86-64-v3":   "linux/amd64/v3",
	"x86-64-v4":   "linux/amd64/v4",
	"x86_64":      "linux/amd64",
}

var debArches = map[string]string{
	"aarch32":     "armhf",
	"aarch64":     "arm64",
	"alpha":       "alpha",
	"amd64":       "amd64",
	"amd64p32":    "x32",
	"arm":         "arm",
	"arm64":       "arm64",
	"armv3":       "arm",
	"armv4":       "armel",
	"armv4t":      "armel",
	"armv5":       "armel",
	"armv5t":      "armel",
	"armv5te":     "armel",
	"armv6":       "armel",
	"armv6h":      "armel",
	"armv7":       "armhf",
	"armv7a":      "armhf",
	"armv7h":      "armhf",
	"armv7l":      "armhf",
	"armv8a":      "arm64",
	"armv8m":      "armhf",
	"armv9":       "arm64",
	"hppa":        "hppa",
	"i386":        "i386",
	"i486":        "i386",
	"i586":        "i386",
	"i686":        "i386",
	"ia64":        "ia64",
	"loong64":     "loong64",
	"loongarch64": "loong64",
	"lpia":        "lpia",
	"m68k":        "m68k",
	"mips":        "mips",
	"mips64":      "mips64el",
	"mips64be":    "mips64",
	"mips64el":    "mips64el",
	"mips64le":    "mips64el",
	"mipsbe":      "mips",
	"mipsel":      "mipsel",
	"mipsle":      "mipsel",
	"powerpc":     "powerpc",
	"powerpc64":   "ppc64",
	"powerpc64el": "ppc64el",
	"powerpc64le": "ppc64el",
	"ppc":         "powerpc",
	"ppc64":       "ppc64",
	"ppc64el":     "ppc64el",
	"ppc64le":     "ppc64el",
	"riscv64":     "riscv64",
	"riscv64gc":   "riscv64",
	"rv64":        "riscv64",
	"rv64gc":      "riscv64",
	"rv64imafdc":  "riscv64",
	"s390":        "s390",
	"s390x":       "s390x",
	"sh4":         "sh4",
	"sparc":       "sparc",
	"sparc64":     "sparc64",
	"x32":         "x32",
	"x64":         "amd64",
	"x64v2":       "amd64",
	"x64v3":       "amd64",
	"x64v4":       "amd64",
	"x86":         "i386",
	"x86-64-v2":   "amd64",
	"x86-64-v3":   "amd64",
	"x86-64-v4":   "amd64",
	"x86_64":      "amd64",
}

// OCIPlatform returns the "os/arch[/variant]" platform string for arch.
func OCIPlatform(arch string) (string, bool) {
	p, ok := ociPlatforms[strings.ToLower(arch)]
	return p, ok
}

// DebArch returns the dpkg architecture name for arch.
func DebArch(arch string) (string, bool) {
	d, ok := debArches[strings.ToLower(arch)]
	return d, ok
}
