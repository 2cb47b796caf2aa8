package config

import (
	"os"
	"path/filepath"
	"strings"

	cerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Overlay is a flat key/value settings patch, loaded from YAML, applied on
// top of the HCL job configuration's global scope. It exists for the
// handful of daemon/mail settings (adminemail, sendmail, metricsaddr, ...)
// that operators deploying via config management often want to template
// independently of the HCL job tree.
type Overlay map[string]string

// OverlayPath derives the conventional overlay location for a given
// configuration file: the same basename with a .yaml extension, in the
// same directory. It does not check that the file exists.
func OverlayPath(configPath string) string {
	ext := filepath.Ext(configPath)
	base := strings.TrimSuffix(configPath, ext)
	return base + ".yaml"
}

// LoadOverlay reads and parses a YAML overlay file. A missing file returns
// the read error unwrapped, so callers check os.IsNotExist to distinguish
// "no overlay configured" from a malformed one.
func LoadOverlay(path string) (Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var overlay Overlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, cerr.Wrapf(err, "parsing settings overlay %s", path)
	}
	return overlay, nil
}

// Apply sets each overlay key on the global scope, replacing any value the
// HCL file already defined there. Overlay keys are scalar only: they feed
// global.String/Bool/Uint lookups, not the accumulated Directory/Exclude
// lists.
func (o Overlay) Apply(global *Scope) {
	for key, value := range o {
		k := normalizeKey(key)
		global.Values[k] = []string{value}
	}
}
