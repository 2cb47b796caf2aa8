package config

import (
	"fmt"
	"os"

	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// DefaultConfigPaths is the search order used when -c is not given.
var DefaultConfigPaths = []string{
	"/etc/snapback2.conf",
	"/etc/snapback/snapback2.conf",
	"/etc/snapback.conf",
	"/etc/snapback/snapback.conf",
}

// Resolve picks the configuration file to load: explicit takes precedence,
// then a positional name mapped to /etc/snapback/<name>.conf, then the
// default search order.
func Resolve(explicit, positionalName string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if positionalName != "" {
		candidate := fmt.Sprintf("/etc/snapback/%s.conf", positionalName)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	for _, p := range DefaultConfigPaths {
		if fileExists(p) {
			return p, nil
		}
	}
	return "", cerr.New("no configuration file found")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load parses the HCL configuration file at path into a global Scope with
// nested backup_host/backup_directory child scopes.
func Load(path string) (*Scope, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, cerr.Wrapf(err, "reading config file %s", path)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, cerr.Wrapf(diags, "parsing config file %s", path)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, cerr.Newf("unexpected HCL body type for %s", path)
	}

	global := NewScope("global", nil)
	if err := populateScope(global, body); err != nil {
		return nil, cerr.Wrapf(err, "loading config file %s", path)
	}
	return global, nil
}

// populateScope fills scope with body's attributes and recurses into
// backup_host / backup_directory blocks, each becoming a child scope keyed
// by its block label.
func populateScope(scope *Scope, body *hclsyntax.Body) error {
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return cerr.Wrapf(diags, "evaluating attribute %s", name)
		}
		values, err := valuesOf(val)
		if err != nil {
			return cerr.Wrapf(err, "attribute %s", name)
		}
		for _, v := range values {
			scope.Add(name, v)
		}
	}

	for _, block := range body.Blocks {
		switch block.Type {
		case "backup_host", "backup_directory":
			if len(block.Labels) != 1 {
				return cerr.Newf("%s block requires exactly one label", block.Type)
			}
			child := NewScope(block.Labels[0], scope)
			if block.Type == "backup_host" {
				child.Add("backuphost", block.Labels[0])
			}
			if err := populateScope(child, block.Body); err != nil {
				return err
			}
			scope.Children = append(scope.Children, child)
		default:
			return cerr.Newf("unknown block type %q", block.Type)
		}
	}
	return nil
}

// valuesOf flattens a cty.Value into its string representations: a scalar
// becomes a single-element slice, a list/tuple becomes one element per
// item (supporting directives like Directory/Exclude that accumulate).
func valuesOf(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []string
		it := val.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			out = append(out, scalarString(ev))
		}
		return out, nil
	default:
		return []string{scalarString(val)}, nil
	}
}

func scalarString(val cty.Value) string {
	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Bool:
		if val.True() {
			return "true"
		}
		return "false"
	case cty.Number:
		bf := val.AsBigFloat()
		return bf.Text('f', -1)
	default:
		return val.GoString()
	}
}
