package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/soar/camstick/internal/devicemap"
)

// ErrParse marks a document whose content could not be parsed.
var ErrParse = errors.New("malformed config document")

// Format is a document encoding.
type Format string

// Supported encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath picks an encoding from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Document is the on-disk form of a Config.
type Document struct {
	Path   string
	Format Format
}

// NewDocument returns a document at path with the encoding implied by its extension.
func NewDocument(path string) *Document {
	return &Document{Path: path, Format: FormatForPath(path)}
}

// Encode renders cfg in the document's format.
func (d *Document) Encode(cfg Config) ([]byte, error) {
	switch d.Format {
	case FormatYAML:
		data, err := yaml.Marshal(cfg)
		return data, errors.Wrap(err, "encoding yaml")
	case FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(newTOMLDocument(cfg)); err != nil {
			return nil, errors.Wrap(err, "encoding toml")
		}
		return buf.Bytes(), nil
	default:
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "encoding json")
		}
		return append(data, '\n'), nil
	}
}

// tomlDocument is the TOML form of a Config. The TOML encoder only accepts maps keyed
// by plain strings, so the calibration maps are re-keyed; Config.Calibration itself is
// skipped by its toml tag.
type tomlDocument struct {
	Config
	Calibration tomlDeviceMap `toml:"calibration"`
}

type tomlDeviceMap struct {
	HatIndex  int                            `toml:"hat_index"`
	DpadMode  devicemap.DpadMode             `toml:"dpad_mode"`
	Bindings  map[string]devicemap.Binding   `toml:"bindings"`
	StickAxes map[string]devicemap.StickAxis `toml:"stick_axes"`
}

func newTOMLDocument(cfg Config) tomlDocument {
	m := cfg.Calibration
	return tomlDocument{
		Config: cfg,
		Calibration: tomlDeviceMap{
			HatIndex: m.HatIndex,
			DpadMode: m.DpadMode,
			Bindings: lo.MapEntries(m.Bindings, func(c devicemap.Control, b devicemap.Binding) (string, devicemap.Binding) {
				return string(c), b
			}),
			StickAxes: lo.MapEntries(m.StickAxes, func(n devicemap.StickAxisName, a devicemap.StickAxis) (string, devicemap.StickAxis) {
				return string(n), a
			}),
		},
	}
}

// Parse decodes raw document content into a generic key/value map. Any syntax error is
// reported as ErrParse.
func (d *Document) Parse(data []byte) (map[string]any, error) {
	raw := map[string]any{}
	var err error
	switch d.Format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrParse, "%s: %v", d.Path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// Read returns the raw bytes of the document.
func (d *Document) Read() ([]byte, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", d.Path)
	}
	return data, nil
}

// Write replaces the document with data. The content is written to a temporary file in
// the same directory and renamed into place so readers never see a partial document.
func (d *Document) Write(data []byte) error {
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "writing %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), d.Path); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "replacing %s", d.Path)
	}
	return nil
}

// LoadResult reports how a Config was obtained at startup.
type LoadResult struct {
	Config  Config
	Created bool
	Dropped []FieldError
	// Content is the document content the config was built from, nil if none was read.
	Content []byte
}

// Load reads the document, overlaying recognized keys onto the defaults. A missing
// document is created with the defaults. A document that cannot be read or parsed yields
// the defaults and is left untouched; the error is returned alongside the result.
func Load(d *Document) (LoadResult, error) {
	res := LoadResult{Config: Default()}

	data, err := os.ReadFile(d.Path)
	if errors.Is(err, os.ErrNotExist) {
		encoded, err := d.Encode(res.Config)
		if err != nil {
			return res, err
		}
		if err := d.Write(encoded); err != nil {
			return res, err
		}
		res.Created = true
		res.Content = encoded
		return res, nil
	}
	if err != nil {
		return res, errors.Wrapf(err, "reading %s", d.Path)
	}

	raw, err := d.Parse(data)
	if err != nil {
		return res, err
	}
	_, res.Dropped = overlay(&res.Config, raw)
	res.Content = data
	return res, nil
}
