package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
)

var errBodyTooLarge = errors.New("api: request body too large")

var validate = newValidator()

func newValidator() *validator.Validate {
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

// manualStandardsFields are outputs a client might try to inject. Standards
// are only ever derived from findings.
var manualStandardsFields = []string{
	"standards",
	"standards_used_auto",
	"standards_used_auto_union",
	"standards_trace",
	"selected_standards",
	"manual_standards",
}

const manualStandardsMessage = "standards are derived automatically from findings and cannot be supplied"

// decode reads a JSON object into dst, rejecting manual standards, unknown
// fields and trailing data, then runs struct validation.
func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errBodyTooLarge
		}
		return model.NewRequestError("", "read body: %v", err)
	}
	return Decode(body, dst)
}

// Decode applies the request decoding rules to an in-memory document. The CLI
// uses it so request files are held to the same contract as HTTP bodies.
func Decode(body []byte, dst any) error {
	if err := rejectManualStandards(body); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return model.NewRequestError("", "unexpected data after JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			field := fe.Namespace()
			if i := strings.Index(field, "."); i >= 0 {
				field = field[i+1:]
			}
			return model.NewRequestError(field, "failed '%s' constraint", fe.Tag())
		}
		return model.NewRequestError("", "%v", err)
	}
	return nil
}

func rejectManualStandards(body []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return model.NewRequestError("", "request body must be a JSON object")
	}
	if err := checkStandardsKeys(top, ""); err != nil {
		return err
	}
	raw, ok := top["execution_plans"]
	if !ok {
		return nil
	}
	var plans []map[string]json.RawMessage
	if json.Unmarshal(raw, &plans) != nil {
		return nil
	}
	for i, p := range plans {
		if err := checkStandardsKeys(p, fmt.Sprintf("execution_plans[%d].", i)); err != nil {
			return err
		}
	}
	return nil
}

func checkStandardsKeys(obj map[string]json.RawMessage, prefix string) error {
	for _, k := range manualStandardsFields {
		if _, ok := obj[k]; ok {
			return model.NewRequestError(prefix+k, manualStandardsMessage)
		}
	}
	return nil
}

func decodeError(err error) error {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return model.NewRequestError(ute.Field, "expected %s, got %s", ute.Type, ute.Value)
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		return model.NewRequestError("", "malformed JSON at offset %d", se.Offset)
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return model.NewRequestError(strings.Trim(name, `"`), "unknown field")
	}
	if errors.Is(err, io.EOF) {
		return model.NewRequestError("", "request body is empty")
	}
	return model.NewRequestError("", "%v", err)
}
