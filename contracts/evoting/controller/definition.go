package controller

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.dedis.ch/ballot/cli"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// Definition is the description of a new election that can be written in a
// YAML file.
//
//	id: board-2024
//	name: Board election
//	candidates:
//	  - Alice
//	  - Bob
//	start: 2024-05-01T08:00:00Z
//	end: 2024-05-01T20:00:00Z
type Definition struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Candidates []string `yaml:"candidates"`
	Start      string   `yaml:"start"`
	End        string   `yaml:"end"`
}

// readDefinition reads the definition from the file if any, and applies the
// flags on top of it. A random identifier is generated when none is given. The
// identifier is a segment of the API paths and cannot contain a slash.
func readDefinition(flags cli.Flags) (Definition, error) {
	var def Definition

	path := flags.String("file")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return def, xerrors.Errorf("failed to read file: %v", err)
		}

		err = yaml.UnmarshalStrict(data, &def)
		if err != nil {
			return def, xerrors.Errorf("failed to decode file: %v", err)
		}
	}

	if flags.String("id") != "" {
		def.ID = flags.String("id")
	}

	if flags.String("name") != "" {
		def.Name = flags.String("name")
	}

	if len(flags.StringSlice("candidate")) > 0 {
		def.Candidates = flags.StringSlice("candidate")
	}

	if flags.String("start") != "" {
		def.Start = flags.String("start")
	}

	if flags.String("end") != "" {
		def.End = flags.String("end")
	}

	if def.ID == "" {
		def.ID = uuid.New().String()
	}

	if strings.Contains(def.ID, "/") {
		return def, xerrors.Errorf("invalid id '%s': '/' is not allowed", def.ID)
	}

	return def, nil
}

// Window returns the voting window of the definition in unix seconds.
func (def Definition) Window() (int64, int64, error) {
	start, err := parseTime(def.Start)
	if err != nil {
		return 0, 0, xerrors.Errorf("invalid start: %v", err)
	}

	end, err := parseTime(def.End)
	if err != nil {
		return 0, 0, xerrors.Errorf("invalid end: %v", err)
	}

	return start, end, nil
}

// parseTime returns the unix seconds of either an integer or an RFC3339 date.
func parseTime(value string) (int64, error) {
	if value == "" {
		return 0, xerrors.New("missing time")
	}

	secs, err := strconv.ParseInt(value, 10, 64)
	if err == nil {
		return secs, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, xerrors.Errorf("failed to parse '%s': %v", value, err)
	}

	return t.Unix(), nil
}
