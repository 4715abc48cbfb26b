package bundle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Document names, in load order.
const (
	DocManifest          = "manifest"
	DocReferences        = "references"
	DocRuleLibrary       = "rule_library"
	DocProcessClassifier = "process_classifier"
	DocOverlays          = "overlays"
	DocRoles             = "roles"
	DocReportTemplates   = "report_templates"
	DocUIBindings        = "ui_bindings"
	DocSupplierProfile   = "supplier_profile_template"
	DocCostModel         = "cost_model"
)

var documentOrder = []string{
	DocManifest,
	DocReferences,
	DocRuleLibrary,
	DocProcessClassifier,
	DocOverlays,
	DocRoles,
	DocReportTemplates,
	DocUIBindings,
	DocSupplierProfile,
	DocCostModel,
}

// DefaultSchemaDir is where optional schemas live, relative to the bundle dir.
const DefaultSchemaDir = "schemas"

// Options tunes Load.
type Options struct {
	// SchemaDir overrides the schema directory. Relative paths resolve
	// against the bundle directory.
	SchemaDir string
}

// rawDoc is a document read from disk and normalised to JSON.
type rawDoc struct {
	name string
	file string
	data []byte
}

var structValidate = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Load reads, validates and cross-checks every document in dir and returns
// an immutable Bundle. Any violation aborts loading with a *ValidationError.
func Load(dir string) (*Bundle, error) {
	return LoadWithOptions(dir, Options{})
}

// LoadWithOptions is Load with explicit options.
func LoadWithOptions(dir string, opts Options) (*Bundle, error) {
	schemaDir := opts.SchemaDir
	if schemaDir == "" {
		schemaDir = DefaultSchemaDir
	}
	if !filepath.IsAbs(schemaDir) {
		schemaDir = filepath.Join(dir, schemaDir)
	}

	raws := make(map[string]rawDoc, len(documentOrder))
	for _, name := range documentOrder {
		raw, err := readDocument(dir, name)
		if err != nil {
			return nil, err
		}
		if err := validateSchema(schemaDir, raw); err != nil {
			return nil, err
		}
		raws[name] = raw
	}

	b := &Bundle{files: make(map[string]string, len(raws))}
	for name, raw := range raws {
		b.files[name] = raw.file
	}
	decoders := []struct {
		name string
		dst  any
	}{
		{DocManifest, &b.manifest},
		{DocReferences, &b.refsDoc},
		{DocRuleLibrary, &b.library},
		{DocProcessClassifier, &b.classifier},
		{DocOverlays, &b.overlaysDoc},
		{DocRoles, &b.rolesDoc},
		{DocReportTemplates, &b.templatesDoc},
		{DocUIBindings, &b.ui},
		{DocSupplierProfile, &b.supplier},
		{DocCostModel, &b.costModel},
	}
	for _, d := range decoders {
		raw := raws[d.name]
		if err := decodeStrict(raw, d.dst); err != nil {
			return nil, err
		}
		if err := validateStruct(raw.file, d.dst); err != nil {
			return nil, err
		}
	}

	b.index()
	if err := crossCheck(b); err != nil {
		return nil, err
	}
	b.fingerprint = fingerprint(raws)

	zap.L().Info("bundle: loaded",
		zap.String("dir", dir),
		zap.String("bundle_id", b.manifest.BundleID),
		zap.String("version", b.manifest.Version),
		zap.Int("rules", len(b.library.Rules)),
		zap.Int("packs", len(b.library.Packs)),
		zap.Int("references", len(b.refsDoc.References)),
		zap.String("fingerprint", b.fingerprint[:12]),
	)
	return b, nil
}

// readDocument reads name.json, falling back to name.yaml / name.yml. YAML
// documents are converted to JSON so every later step sees one format.
func readDocument(dir, name string) (rawDoc, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		file := name + ext
		data, err := os.ReadFile(filepath.Join(dir, file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return rawDoc{}, &ValidationError{File: file, Message: "read failed: " + err.Error()}
		}
		if ext != ".json" {
			data, err = yamlToJSON(data)
			if err != nil {
				return rawDoc{}, &ValidationError{File: file, Message: "parse failed: " + err.Error()}
			}
		}
		if !json.Valid(data) {
			var syn any
			perr := json.Unmarshal(data, &syn)
			return rawDoc{}, &ValidationError{File: file, Message: "parse failed: " + errString(perr)}
		}
		return rawDoc{name: name, file: file, data: data}, nil
	}
	return rawDoc{}, &ValidationError{File: name + ".json", Message: "document missing"}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, eris.Wrap(err, "bundle: yaml")
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "bundle: yaml to json")
	}
	return out, nil
}

func decodeStrict(raw rawDoc, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw.data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &ValidationError{File: raw.file, Message: "decode failed: " + err.Error()}
	}
	return nil
}

var ruleIndexPattern = regexp.MustCompile(`^rules\[(\d+)\]`)

func validateStruct(file string, doc any) error {
	err := structValidate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{File: file, Message: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	ve := &ValidationError{
		File:    file,
		Field:   field,
		Message: "failed '" + fe.Tag() + "' constraint",
	}
	if lib, ok := doc.(*ruleLibraryDoc); ok {
		if m := ruleIndexPattern.FindStringSubmatch(field); m != nil {
			if i, err := strconv.Atoi(m[1]); err == nil && i < len(lib.Rules) {
				ve.RuleID = lib.Rules[i].RuleID
			}
		}
	}
	return ve
}

func fingerprint(raws map[string]rawDoc) string {
	h := sha256.New()
	for _, name := range documentOrder {
		raw := raws[name]
		h.Write([]byte(name))
		h.Write([]byte{0})
		h.Write(raw.data)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func errString(err error) string {
	if err == nil {
		return "invalid JSON"
	}
	return err.Error()
}
