package jarsign

import (
	"bufio"
	"bytes"
	"strings"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
)

// attributes is one section of a JAR manifest or signature file.
type attributes map[string]string

type manifest struct {
	main    attributes
	entries map[string]attributes
}

// parseManifest reads the MANIFEST.MF and *.SF format: "Key: value" lines, continuation lines
// starting with a single space, sections separated by blank lines. Sections after the first
// are keyed by their Name attribute.
func parseManifest(b []byte) (manifest, error) {
	m := manifest{main: attributes{}, entries: map[string]attributes{}}
	current := m.main
	var lastKey string
	inMain := true

	flush := func() error {
		if inMain {
			return nil
		}
		name, ok := current["Name"]
		if !ok {
			return pkgerrors.Wrap(pkgerrors.ErrSigning, "manifest section without Name")
		}
		m.entries[name] = current
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	started := false
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		switch {
		case line == "":
			if !started {
				continue
			}
			if err := flush(); err != nil {
				return manifest{}, err
			}
			inMain = false
			started = false
			current = attributes{}
			lastKey = ""
		case strings.HasPrefix(line, " "):
			if lastKey == "" {
				return manifest{}, pkgerrors.Wrap(pkgerrors.ErrSigning, "manifest continuation without attribute")
			}
			current[lastKey] += line[1:]
		default:
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				return manifest{}, pkgerrors.Wrapf(pkgerrors.ErrSigning, "malformed manifest line %q", line)
			}
			current[key] = value
			lastKey = key
			started = true
		}
	}
	if err := sc.Err(); err != nil {
		return manifest{}, pkgerrors.Wrap(pkgerrors.ErrSigning, err.Error())
	}
	if started {
		if err := flush(); err != nil {
			return manifest{}, err
		}
	}
	return m, nil
}
