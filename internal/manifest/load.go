package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource []byte

// LoadMode controls how errors are handled while compiling.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Item is one declared inventory item.
type Item struct {
	Key         string         `json:"-"`
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Folder      string         `json:"folder,omitempty"`
	Library     bool           `json:"library"`
	Params      map[string]int `json:"params"`
	Missing     bool           `json:"missing"`
	Claims      string         `json:"claims,omitempty"`

	Pos token.Pos `json:"-"`
}

// Outfit is one declared outfit folder.
type Outfit struct {
	Name  string   `json:"-"`
	Items []string `json:"items"`

	Pos token.Pos `json:"-"`
}

// Manifest is a compiled manifest, in declaration order.
type Manifest struct {
	Items     []Item
	Outfits   []Outfit
	Wear      string
	FileCount int
}

// Item returns the item declared under key.
func (m *Manifest) Item(key string) (Item, bool) {
	for _, it := range m.Items {
		if it.Key == key {
			return it, true
		}
	}
	return Item{}, false
}

// Load compiles every CUE file in dir as one manifest.
func Load(dir string, mode LoadMode) (*Manifest, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("manifest directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing manifest directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueErrors(ErrCodeLoadFailed, inst.Err)
	}
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueErrors(ErrCodeBuildFailed, err)
	}

	m, errs := Compile(value, mode)
	if m != nil {
		m.FileCount = len(files)
	}
	return m, errs
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Compile checks v against #Manifest and extracts its items and outfits.
func Compile(v cue.Value, mode LoadMode) (*Manifest, []error) {
	schema := v.Context().CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, cueErrors(ErrCodeGeneric, err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		errs := cueErrors(ErrCodeSchema, err)
		if mode == LoadModeFailFast {
			errs = errs[:1]
		}
		return nil, errs
	}

	m := &Manifest{}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, err)
		return mode == LoadModeFailFast
	}

	if iter, err := unified.LookupPath(cue.ParsePath("items")).Fields(); err == nil {
		for iter.Next() {
			var it Item
			if err := iter.Value().Decode(&it); err != nil {
				if fail(&LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("items.%s: %v", iter.Label(), err), Pos: iter.Value().Pos()}) {
					return m, errs
				}
				continue
			}
			it.Key = iter.Label()
			it.Pos = iter.Value().Pos()
			if it.Kind == "wearable" && it.Type == "" {
				if fail(&LoadError{Code: ErrCodeMissingType, Message: fmt.Sprintf("item %q: wearables need a type", it.Key), Pos: it.Pos}) {
					return m, errs
				}
				continue
			}
			m.Items = append(m.Items, it)
		}
	}

	if iter, err := unified.LookupPath(cue.ParsePath("outfits")).Fields(); err == nil {
		for iter.Next() {
			var o Outfit
			if err := iter.Value().Decode(&o); err != nil {
				if fail(&LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("outfits.%s: %v", iter.Label(), err), Pos: iter.Value().Pos()}) {
					return m, errs
				}
				continue
			}
			o.Name = iter.Label()
			o.Pos = iter.Value().Pos()
			for _, key := range o.Items {
				if _, ok := m.Item(key); !ok {
					if fail(&LoadError{Code: ErrCodeUnknownItem, Message: fmt.Sprintf("outfit %q: unknown item %q", o.Name, key), Pos: o.Pos}) {
						return m, errs
					}
				}
			}
			m.Outfits = append(m.Outfits, o)
		}
	}

	if wear := unified.LookupPath(cue.ParsePath("wear")); wear.Exists() {
		name, err := wear.String()
		if err != nil {
			errs = append(errs, cueErrors(ErrCodeSchema, err)...)
			return m, errs
		}
		if !m.hasOutfit(name) {
			errs = append(errs, &LoadError{Code: ErrCodeUnknownWear, Message: fmt.Sprintf("wear: unknown outfit %q", name), Pos: wear.Pos()})
			return m, errs
		}
		m.Wear = name
	}
	return m, errs
}

func (m *Manifest) hasOutfit(name string) bool {
	for _, o := range m.Outfits {
		if o.Name == name {
			return true
		}
	}
	return false
}
