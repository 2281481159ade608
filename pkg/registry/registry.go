// Package registry names the slices and module types on a bus, so the
// CRUMBS tools can print friendly output. Names are presentation only;
// the wire format stays numeric.
package registry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/CameronBrooks11/CRUMBS/pkg/message"
)

// SliceDef names one slice.
type SliceDef struct {
	ID   uint8  `toml:"id"`
	Name string `toml:"name"`
	Type uint8  `toml:"type"`
}

// TypeDef names one module type and its commands. Command keys are the
// commandType values in decimal.
type TypeDef struct {
	ID       uint8             `toml:"id"`
	Name     string            `toml:"name"`
	Commands map[string]string `toml:"commands"`
}

// Registry is the parsed registry file.
type Registry struct {
	Slices []SliceDef `toml:"slices"`
	Types  []TypeDef  `toml:"types"`

	slicesByID map[uint8]*SliceDef
	typesByID  map[uint8]*TypeDef
	cmdNames   map[uint16]string
}

// Load reads and indexes a registry file.
func Load(path string) (*Registry, error) {
	var reg Registry
	if _, err := toml.DecodeFile(path, &reg); err != nil {
		return nil, fmt.Errorf("registry load failed (%s): %w", path, err)
	}
	if err := reg.index(); err != nil {
		return nil, fmt.Errorf("registry invalid (%s): %w", path, err)
	}
	return &reg, nil
}

// Parse parses registry content from a string.
func Parse(content string) (*Registry, error) {
	var reg Registry
	if _, err := toml.Decode(content, &reg); err != nil {
		return nil, err
	}
	if err := reg.index(); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Registry) index() error {
	r.slicesByID = make(map[uint8]*SliceDef)
	r.typesByID = make(map[uint8]*TypeDef)
	r.cmdNames = make(map[uint16]string)
	for i := range r.Slices {
		s := &r.Slices[i]
		if _, ok := r.slicesByID[s.ID]; ok {
			return fmt.Errorf("duplicate slice id %d", s.ID)
		}
		r.slicesByID[s.ID] = s
	}
	for i := range r.Types {
		typ := &r.Types[i]
		if _, ok := r.typesByID[typ.ID]; ok {
			return fmt.Errorf("duplicate type id %d", typ.ID)
		}
		r.typesByID[typ.ID] = typ
		for key, name := range typ.Commands {
			cmd, err := strconv.ParseUint(key, 10, 8)
			if err != nil {
				return fmt.Errorf("type %d: bad command key %q", typ.ID, key)
			}
			r.cmdNames[uint16(typ.ID)<<8|uint16(cmd)] = name
		}
	}
	return nil
}

// SliceName names a slice, falling back to the numeric ID.
func (r *Registry) SliceName(id uint8) string {
	if s, ok := r.slicesByID[id]; ok && s.Name != "" {
		return s.Name
	}
	return "slice-" + strconv.Itoa(int(id))
}

// SliceType looks up the module type of a slice.
func (r *Registry) SliceType(id uint8) (uint8, bool) {
	if s, ok := r.slicesByID[id]; ok {
		return s.Type, true
	}
	return 0, false
}

// TypeName names a module type, falling back to the numeric ID.
func (r *Registry) TypeName(id uint8) string {
	if typ, ok := r.typesByID[id]; ok && typ.Name != "" {
		return typ.Name
	}
	return "type-" + strconv.Itoa(int(id))
}

// CommandName names a command of a module type, falling back to the
// numeric value.
func (r *Registry) CommandName(typeID, commandType uint8) string {
	if name, ok := r.cmdNames[uint16(typeID)<<8|uint16(commandType)]; ok {
		return name
	}
	return "cmd-" + strconv.Itoa(int(commandType))
}

// Describe formats a message for display.
func (r *Registry) Describe(m message.Message) string {
	var w strings.Builder
	fmt.Fprintf(&w, "%s %s/%s data=%v",
		r.SliceName(m.SliceID),
		r.TypeName(m.TypeID),
		r.CommandName(m.TypeID, m.CommandType),
		m.Data)
	if m.ErrorFlags != 0 {
		fmt.Fprintf(&w, " flags=%#02x", m.ErrorFlags)
	}
	return w.String()
}
