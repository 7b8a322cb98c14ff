// Package batch reads the list of updates to announce from a YAML or JSON file.
package batch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	yaml "go.yaml.in/yaml/v3"

	"miuinotify/internal/commontypes"
)

var ErrInvalidUpdate = goerr.New("invalid update in batch")

// Read decodes a sequence of updates. Unknown keys are rejected so a typo in
// a field name does not silently drop data.
func Read(r io.Reader) ([]commontypes.Update, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var updates []commontypes.Update
	if err := dec.Decode(&updates); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("error decoding batch: %w", err)
	}

	for i, u := range updates {
		if err := validate(u); err != nil {
			return nil, goerr.Wrap(err, "bad batch entry", goerr.V("index", i), goerr.V("codename", u.Codename))
		}
	}
	return updates, nil
}

// ReadFile reads path, or stdin when path is "-".
func ReadFile(path string) ([]commontypes.Update, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening batch file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func validate(u commontypes.Update) error {
	missing := ""
	switch {
	case u.Codename == "":
		missing = "codename"
	case u.Version == "":
		missing = "version"
	case u.Link == "":
		missing = "link"
	case u.Method != "Recovery" && u.Method != "Fastboot":
		return goerr.Wrap(ErrInvalidUpdate, "method must be Recovery or Fastboot", goerr.V("method", u.Method))
	}
	if missing != "" {
		return goerr.Wrap(ErrInvalidUpdate, "required field is empty", goerr.V("field", missing))
	}
	return nil
}
