package fsops

import (
	"fmt"
	"strings"
)

const maxNameLength = 255

// Characters that are unsafe in file names on at least one supported
// filesystem.
const invalidNameChars = `<>:"/\|?*`

var reservedNames = map[string]struct{}{
	"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
	"COM1": {}, "COM2": {}, "COM3": {}, "COM4": {}, "COM5": {},
	"COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
	"LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {}, "LPT5": {},
	"LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
}

// ValidateName rejects names that cannot be created portably: empty or
// whitespace-only names, names over 255 characters, names containing
// reserved characters or control characters, OS device names, and names
// ending in a dot or space.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	if i := strings.IndexAny(name, invalidNameChars); i >= 0 {
		return fmt.Errorf("name contains invalid character %q", name[i])
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("name contains control character")
		}
	}
	if strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return fmt.Errorf("name ends with a dot or space")
	}
	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if _, ok := reservedNames[strings.ToUpper(base)]; ok {
		return fmt.Errorf("name %q is reserved by the operating system", name)
	}
	return nil
}

// SanitizeName replaces characters rejected by ValidateName so that an
// arbitrary title can be used as a file name.
var nameReplacer = strings.NewReplacer(
	"<", "", ">", "", ":", " -", `"`, "'", "/", "-", `\`, "-",
	"|", "-", "?", "", "*", "",
)

func SanitizeName(name string) string {
	s := nameReplacer.Replace(name)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ". ")
	if len(s) > maxNameLength {
		s = strings.TrimRight(s[:maxNameLength], ". ")
	}
	return s
}
