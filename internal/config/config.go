// Package config loads the small ahoy.conf-style "key = value" file that
// supplies MQTT credentials and the inverter list. Deliberately minimal:
// extending the file format is explicitly out of scope.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// File is the parsed configuration surface.
type File struct {
	MQTTHost     string
	MQTTPort     int
	MQTTUser     string
	MQTTPassword string
	DTUSerial    string
	InverterList []string
}

// Load reads path as a sequence of "key = value" lines (blank lines and
// lines starting with '#' or ';' are ignored; a leading "[section]" line
// is accepted but not otherwise interpreted, matching the reference
// ahoy.conf format).
func Load(path string) (File, error) {
	f := File{DTUSerial: "99978563412"}

	raw, err := os.Open(path)
	if err != nil {
		return f, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer raw.Close()

	scanner := bufio.NewScanner(raw)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "mqtt.host":
			f.MQTTHost = val
		case "mqtt.port":
			port, err := strconv.Atoi(val)
			if err != nil {
				return f, fmt.Errorf("config: mqtt.port: %w", err)
			}
			f.MQTTPort = port
		case "mqtt.user":
			f.MQTTUser = val
		case "mqtt.password":
			f.MQTTPassword = val
		case "dtu.serial":
			f.DTUSerial = val
		case "inverter.serial":
			f.InverterList = splitCSV(val)
		}
	}
	if err := scanner.Err(); err != nil {
		return f, fmt.Errorf("config: read %s: %w", path, err)
	}
	return f, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
