package guestfs

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kubev2v/guest-inspection-agent/internal/models"
)

var pidPattern = regexp.MustCompile(`GUESTFISH_PID=(\d+)`)

// parsePID reads the pid printed by guestfish --listen:
//
//	GUESTFISH_PID=4513; export GUESTFISH_PID
func parsePID(out []byte) (string, error) {
	m := pidPattern.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no GUESTFISH_PID in %q", strings.TrimSpace(string(out)))
	}
	return string(m[1]), nil
}

func parseLines(out []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func parseString(out []byte) string {
	return strings.TrimRight(string(out), "\n")
}

func parseInt(out []byte) (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(out)))
}

// parseMountpoints reads the hash printed by inspect-get-mountpoints:
//
//	/: /dev/sda2
//	/boot: /dev/sda1
func parseMountpoints(out []byte) ([]models.Mountpoint, error) {
	var mps []models.Mountpoint
	for _, line := range parseLines(out) {
		path, device, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("malformed mountpoint %q", line)
		}
		mps = append(mps, models.Mountpoint{Path: path, Device: device})
	}
	return mps, nil
}

var (
	appStartPattern = regexp.MustCompile(`^\[\d+\] = \{$`)
	appFieldPattern = regexp.MustCompile(`^  (app2_[a-z0-9_]+):(.*)$`)
)

// parseApplications reads the struct list printed by inspect-list-applications2:
//
//	[0] = {
//	  app2_name: bash
//	  app2_display_name:
//	  app2_version: 5.1.8
//	  app2_release: 6.el9
//	  ...
//	}
//
// Values such as app2_description may span several lines, and those lines
// are printed as is. A "}" line only ends a record when the next line starts
// a new record or the output ends.
func parseApplications(out []byte) ([]models.Application, error) {
	apps := make([]models.Application, 0)
	var (
		current *models.Application
		closed  bool
	)

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case (current == nil || closed) && appStartPattern.MatchString(line):
			apps = append(apps, models.Application{})
			current = &apps[len(apps)-1]
			closed = false
		case current == nil:
			if strings.TrimSpace(line) != "" {
				return nil, fmt.Errorf("unexpected line %q", line)
			}
		case line == "}":
			closed = true
		default:
			closed = false
			m := appFieldPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			value := strings.TrimSpace(m[2])
			switch m[1] {
			case "app2_name":
				current.Name = value
			case "app2_display_name":
				current.DisplayName = value
			case "app2_version":
				current.Version = value
			case "app2_release":
				current.Release = value
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading applications: %w", err)
	}
	return apps, nil
}

// isUnknownCommand reports whether guestfish rejected the command itself,
// which happens when the libguestfs build lacks it.
func isUnknownCommand(stderr string) bool {
	return strings.Contains(stderr, "unknown command") ||
		strings.Contains(stderr, "command not known")
}
