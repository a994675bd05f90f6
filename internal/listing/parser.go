// Package listing parses the long-format directory listings produced by a
// remote `ls -l` invocation into structured file metadata.
package listing

import (
	"strconv"
	"strings"
	"time"
)

// FileMeta describes a single entry of a parsed directory listing.
type FileMeta struct {
	Directory     bool
	Permissions   string
	Perms         uint16
	Links         uint16
	OwnerName     string
	OwnerGroup    string
	FileSize      uint64
	Month         string
	Date          string
	TimeYear      string
	Name          string
	ModifiedSince uint32
}

// Parse splits raw into lines and parses each as a long-format listing
// entry, silently skipping lines that don't fit the expected shape (header
// lines such as "total 128", and error output from the remote ls command).
func Parse(raw string) []FileMeta {
	lines := strings.Split(raw, "\n")

	entries := make([]FileMeta, 0, len(lines))
	for _, line := range lines {
		meta, ok := parseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, meta)
	}
	return entries
}

func parseLine(line string) (FileMeta, bool) {
	fields := strings.Fields(line)
	if len(fields) < 8 {
		return FileMeta{}, false
	}

	permissions := fields[0]

	links, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return FileMeta{}, false
	}

	ownerName := fields[2]
	ownerGroup := fields[3]

	// Sizes are occasionally human-readable ("6.7K", "345B") on some
	// platforms; in that case we record a size of zero rather than reject
	// the line, matching the lenient behavior of the reference parser.
	fileSize, _ := strconv.ParseUint(fields[4], 10, 64)

	month := fields[5]
	date := fields[6]
	timeYear := fields[7]
	name := strings.Join(fields[8:], " ")

	isLink := strings.HasPrefix(permissions, "l")
	directory := isLink || strings.HasPrefix(permissions, "d")

	perms := decodePerms(permissions)
	if isLink {
		// Symlinks are treated as directories without chasing their
		// target, so their permission bits are meaningless; use the
		// widest possible mask instead of whatever the remote reported.
		perms = 0o7777
	}

	if isLink {
		if idx := strings.Index(name, " -> "); idx >= 0 {
			name = name[:idx]
		}
	}

	modifiedSince, ok := parseModTime(month, date, timeYear)
	if !ok {
		return FileMeta{}, false
	}

	return FileMeta{
		Directory:     directory,
		Permissions:   permissions,
		Perms:         perms,
		Links:         uint16(links),
		OwnerName:     ownerName,
		OwnerGroup:    ownerGroup,
		FileSize:      fileSize,
		Month:         month,
		Date:          date,
		TimeYear:      timeYear,
		Name:          name,
		ModifiedSince: modifiedSince,
	}, true
}

// decodePerms turns the 10-character permission string (e.g. "drwxr-xr-x")
// into the 9-bit rwxrwxrwx mode, ignoring the leading type character.
func decodePerms(permissions string) uint16 {
	if len(permissions) < 10 {
		return 0
	}
	bits := permissions[1:10]

	var perms uint16
	perms |= permsOctet(bits[0:3]) << 6
	perms |= permsOctet(bits[3:6]) << 3
	perms |= permsOctet(bits[6:9])
	return perms
}

func permsOctet(triplet string) uint16 {
	var v uint16
	if len(triplet) != 3 {
		return 0
	}
	if triplet[0] == 'r' {
		v += 4
	}
	if triplet[1] == 'w' {
		v += 2
	}
	if triplet[2] == 'x' || triplet[2] == 's' || triplet[2] == 't' {
		v += 1
	}
	return v
}

var months = map[string]time.Month{
	"Jan": time.January,
	"Feb": time.February,
	"Mar": time.March,
	"Apr": time.April,
	"May": time.May,
	"Jun": time.June,
	"Jul": time.July,
	"Aug": time.August,
	"Sep": time.September,
	"Oct": time.October,
	"Nov": time.November,
	"Dec": time.December,
}

// parseModTime interprets the "Mon DD HH:MM" or "Mon DD YYYY" triple that ls
// emits, returning a Unix timestamp. The year is assumed to be the current
// year (in UTC) when a time-of-day is given instead of a year, matching the
// ambiguity ls itself has between recent and old files.
func parseModTime(month, day, timeOrYear string) (uint32, bool) {
	mon, ok := months[month]
	if !ok {
		return 0, false
	}

	d, err := strconv.Atoi(day)
	if err != nil {
		return 0, false
	}

	var t time.Time
	if strings.Contains(timeOrYear, ":") {
		parts := strings.SplitN(timeOrYear, ":", 2)
		if len(parts) != 2 {
			return 0, false
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, false
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, false
		}
		year := time.Now().UTC().Year()
		t = time.Date(year, mon, d, hour, minute, 0, 0, time.UTC)
	} else {
		year, err := strconv.Atoi(timeOrYear)
		if err != nil {
			return 0, false
		}
		t = time.Date(year, mon, d, 0, 0, 0, 0, time.UTC)
	}

	return uint32(t.Unix()), true
}
