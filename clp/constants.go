package clp

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"
)

// ConstResolver synthesizes a literal Value for a bare keyword that the
// current symbol scope does not define, consulting a fixed table of
// reserved names (spec.md §4.2). It is consulted only after the Symbol
// Table lookup in the current and enclosing scopes has failed.
type ConstResolver struct {
	now     time.Time
	rng     *rand.Rand
	counter uint64
}

// NewConstResolver builds a resolver pinned to now (the open-time
// reference) and seeded for reproducible-within-a-process random
// scalars.
func NewConstResolver(now time.Time, seed int64) *ConstResolver {
	return &ConstResolver{now: now, rng: rand.New(rand.NewSource(seed))}
}

// Now returns the open-time reference used by this resolver.
func (r *ConstResolver) Now() time.Time { return r.now }

// Resolve looks up name in the predefined-constant table and returns its
// value. ok is false if name is not a reserved identifier.
func (r *ConstResolver) Resolve(name string) (Value, bool) {
	switch name {
	case "NOW":
		return intValue(r.now.Unix()), true
	case "MINUTE":
		return intValue(60), true
	case "HOUR":
		return intValue(3600), true
	case "DAY":
		return intValue(86400), true
	case "YEAR":
		return intValue(365 * 86400), true

	case "KiB":
		return intValue(1 << 10), true
	case "MiB":
		return intValue(1 << 20), true
	case "GiB":
		return intValue(1 << 30), true
	case "TiB":
		return intValue(1 << 40), true

	case "PI":
		return fltValue(math.Pi), true

	case "RND1":
		return intValue(int64(r.next() & 0xFF)), true
	case "RND2":
		return intValue(int64(r.next() & 0xFFFF)), true
	case "RND4":
		return intValue(int64(r.next() & 0xFFFFFFFF)), true
	case "RND8":
		return intValue(int64(r.next())), true

	case "LCSTAMP":
		return strValue([]byte(formatStamp(r.now)), EncZero), true
	case "LCDATE":
		return strValue([]byte(formatDate(r.now)), EncZero), true
	case "LCYEAR":
		return strValue([]byte(r.now.Format("2006")), EncZero), true
	case "LCYEAR2":
		return strValue([]byte(r.now.Format("06")), EncZero), true
	case "LCMONTH":
		return strValue([]byte(r.now.Format("01")), EncZero), true
	case "LCDAY":
		return strValue([]byte(r.now.Format("02")), EncZero), true
	case "LCTIME":
		return strValue([]byte(formatTimeOfDay(r.now)), EncZero), true
	case "LCHOUR":
		return strValue([]byte(r.now.Format("15")), EncZero), true
	case "LCMINUTE":
		return strValue([]byte(r.now.Format("04")), EncZero), true
	case "LCSECOND":
		return strValue([]byte(r.now.Format("05")), EncZero), true
	case "LCOFFSET":
		return strValue([]byte(formatOffset(r.now, true)), EncZero), true
	case "LCOFFABS":
		return strValue([]byte(formatOffset(r.now, false)), EncZero), true

	case "GMSTAMP":
		return strValue([]byte(formatStamp(r.now.UTC())), EncZero), true
	case "GMDATE":
		return strValue([]byte(formatDate(r.now.UTC())), EncZero), true
	case "GMYEAR":
		return strValue([]byte(r.now.UTC().Format("2006")), EncZero), true
	case "GMYEAR2":
		return strValue([]byte(r.now.UTC().Format("06")), EncZero), true
	case "GMMONTH":
		return strValue([]byte(r.now.UTC().Format("01")), EncZero), true
	case "GMDAY":
		return strValue([]byte(r.now.UTC().Format("02")), EncZero), true
	case "GMTIME":
		return strValue([]byte(formatTimeOfDay(r.now.UTC())), EncZero), true
	case "GMHOUR":
		return strValue([]byte(r.now.UTC().Format("15")), EncZero), true
	case "GMMINUTE":
		return strValue([]byte(r.now.UTC().Format("04")), EncZero), true
	case "GMSECOND":
		return strValue([]byte(r.now.UTC().Format("05")), EncZero), true
	case "GMOFFSET":
		return strValue([]byte(formatOffset(r.now, true)), EncZero), true
	case "GMOFFABS":
		return strValue([]byte(formatOffset(r.now, false)), EncZero), true
	}

	if n, hex, ok := parseRandomStringName(name); ok {
		return strValue([]byte(r.randomDigits(n, hex)), EncZero), true
	}

	return Value{}, false
}

// next mixes a per-call counter with the seeded PRNG through an FNV-1a
// hash, matching the reference resolver's 64-bit mixing scheme.
func (r *ConstResolver) next() uint64 {
	r.counter++
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], r.counter)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.rng.Int63()))
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}

func (r *ConstResolver) randomDigits(n int, hex bool) string {
	const decDigits = "0123456789"
	const hexDigits = "0123456789ABCDEF"
	alphabet := decDigits
	if hex {
		alphabet = hexDigits
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[r.next()%uint64(len(alphabet))]
	}
	return string(out)
}

// parseRandomStringName recognizes "<n>RND10" / "<n>RND16" names, n in
// 1..8, for the SnRND10/SnRND16 categories.
func parseRandomStringName(name string) (n int, hex bool, ok bool) {
	var suffix string
	switch {
	case strings.HasSuffix(name, "RND10"):
		suffix = "RND10"
	case strings.HasSuffix(name, "RND16"):
		suffix = "RND16"
	default:
		return 0, false, false
	}
	digitPart := strings.TrimSuffix(name, suffix)
	if len(digitPart) != 1 || digitPart[0] < '1' || digitPart[0] > '8' {
		return 0, false, false
	}
	return int(digitPart[0] - '0'), suffix == "RND16", true
}

func formatStamp(t time.Time) string {
	return t.Format("20060102.150405")
}

func formatDate(t time.Time) string {
	return t.Format("20060102")
}

func formatTimeOfDay(t time.Time) string {
	return t.Format("150405")
}

// formatOffset renders the local-to-GM offset as "+HHMM"/"-HHMM"
// (signed) or "HHMM" (absolute value, no sign).
func formatOffset(t time.Time, signed bool) string {
	_, secs := t.Zone()
	neg := secs < 0
	if neg {
		secs = -secs
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	sign := "+"
	if neg {
		sign = "-"
	}
	if signed {
		return sign + twoDigits(h) + twoDigits(m)
	}
	return twoDigits(h) + twoDigits(m)
}

func twoDigits(v int) string {
	if v < 10 {
		return "0" + itoa(v)
	}
	return itoa(v)
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
