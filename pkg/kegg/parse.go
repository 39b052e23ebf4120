package kegg

import (
	"bufio"
	"fmt"
	"strings"
)

// ModuleEntry is one line of /list/module.
type ModuleEntry struct {
	ID   string
	Name string
}

// Module holds the fields of a /get/<module> flat file that completeness needs.
type Module struct {
	ID         string
	Name       string
	Definition string
}

// KEGG flat files put the field name in the first 12 columns; continuation lines
// leave them blank.
const fieldWidth = 12

func parseList(body string) []ModuleEntry {
	var out []ModuleEntry
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, name, _ := strings.Cut(line, "\t")
		id = strings.TrimPrefix(strings.TrimSpace(id), "md:")
		if id == "" {
			continue
		}
		out = append(out, ModuleEntry{ID: id, Name: strings.TrimSpace(name)})
	}
	return out
}

func parseModule(body string) (*Module, error) {
	fields := make(map[string][]string)
	var current string

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "///") {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value := splitField(line)
		if key != "" {
			current = key
		}
		if current == "" {
			continue
		}
		fields[current] = append(fields[current], value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	m := &Module{
		Name:       strings.Join(fields["NAME"], " "),
		Definition: strings.Join(fields["DEFINITION"], " "),
	}
	if entry := fields["ENTRY"]; len(entry) > 0 {
		if f := strings.Fields(entry[0]); len(f) > 0 {
			m.ID = f[0]
		}
	}
	if m.Definition == "" {
		return nil, fmt.Errorf("%w: entry has no DEFINITION", ErrStatus)
	}
	return m, nil
}

func splitField(line string) (key, value string) {
	if len(line) <= fieldWidth {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:fieldWidth]), strings.TrimSpace(line[fieldWidth:])
}

// parseRelease extracts "110.0+/05-13" from "md  Release 110.0+/05-13, May 24".
func parseRelease(body string) string {
	for _, line := range strings.Split(body, "\n") {
		_, after, ok := strings.Cut(line, "Release ")
		if !ok {
			continue
		}
		f := strings.Fields(after)
		if len(f) == 0 {
			continue
		}
		return strings.TrimRight(f[0], ",")
	}
	return ""
}
