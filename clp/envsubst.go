package clp

import (
	"fmt"
	"os"
	"strings"
)

// maxEnvSubstitutions bounds the number of <NAME> replacements performed
// in one parse pass (spec.md §4.1).
const maxEnvSubstitutions = 256

// substituteEnv replaces <NAME> with the process environment value of
// NAME, scanning left to right. Substitution is suspended while inside a
// quoted string literal (', ", or `) — the open question in spec.md §9
// reads this as intentionally disabled inside strings, and the test
// corpus is expected to confirm that reading. Only the replacement text
// is inserted; it is not itself re-scanned for further <NAME> forms.
func substituteEnv(src string) (string, error) {
	var sb strings.Builder
	var quote byte
	count := 0
	i := 0
	for i < len(src) {
		c := src[i]
		if quote != 0 {
			sb.WriteByte(c)
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			sb.WriteByte(c)
			i++
		case '<':
			end := strings.IndexByte(src[i+1:], '>')
			if end < 0 {
				sb.WriteByte(c)
				i++
				continue
			}
			name := src[i+1 : i+1+end]
			if !isEnvName(name) {
				sb.WriteByte(c)
				i++
				continue
			}
			if count >= maxEnvSubstitutions {
				return "", fmt.Errorf("too many environment substitutions (max %d)", maxEnvSubstitutions)
			}
			count++
			sb.WriteString(os.Getenv(name))
			i += 1 + end + 1
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String(), nil
}

func isEnvName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isAlnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '.'
		if !isAlnum {
			return false
		}
	}
	return true
}

// envKey maps a dotted descriptor path to the uppercased, underscored
// environment variable name the symbol table checks during ins() —
// OWN.PGM.PATH.KYW, then PGM.PATH.KYW, then PATH.KYW.
func envKey(dotted string) string {
	return strings.ToUpper(strings.ReplaceAll(dotted, ".", "_"))
}
