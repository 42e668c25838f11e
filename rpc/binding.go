package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/monadicstack/livepost/rpc/errors"
)

// Binder takes the meaningful values of an incoming call (body, path params) and applies
// them to a Go struct, typically the call's request model.
type Binder interface {
	Bind(req *http.Request, out interface{}) error
}

// WithBinder allows you to override a Gateway's default binding behavior.
func WithBinder(binder Binder) GatewayOption {
	return func(gw *Gateway) {
		gw.Binder = binder
	}
}

// jsonBinder is the default gateway binder. The JSON body is decoded first and path
// params are laid over the top, so "/Posts.Edit/:id" wins over an "id" in the body.
type jsonBinder struct{}

func (b jsonBinder) Bind(req *http.Request, out interface{}) error {
	if err := b.bindBody(req, out); err != nil {
		return errors.BadRequest("binding error: %v", err)
	}
	if err := b.bindPathParams(req, out); err != nil {
		return errors.BadRequest("binding error: %v", err)
	}
	return nil
}

func (b jsonBinder) bindBody(req *http.Request, out interface{}) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(req.Body).Decode(out)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bind body: %w", err)
	}
	return nil
}

func (b jsonBinder) bindPathParams(req *http.Request, out interface{}) error {
	params := httptreemux.ContextParams(req.Context())
	if len(params) == 0 {
		return nil
	}
	err := json.NewDecoder(b.paramsToJSON(params)).Decode(out)
	if err != nil {
		return fmt.Errorf("bind path params: %w", err)
	}
	return nil
}

func (b jsonBinder) paramsToJSON(params map[string]string) io.Reader {
	paramJSON := &bytes.Buffer{}
	paramJSON.WriteString("{")
	i := 0
	for key, value := range params {
		if i > 0 {
			paramJSON.WriteString(", ")
		}
		b.writeAttributeJSON(paramJSON, key, value)
		i++
	}
	paramJSON.WriteString("}")
	return paramJSON
}

// writeAttributeJSON writes a key/value pair to a JSON object buffer. Integers and bools
// are written bare so they decode into int/bool fields; everything else is quoted. Integers
// are re-formatted so that "007" arrives as 7 rather than as invalid JSON.
func (b jsonBinder) writeAttributeJSON(buf *bytes.Buffer, key string, value string) {
	keyJSON, _ := json.Marshal(key)
	buf.Write(keyJSON)
	buf.WriteString(":")
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		buf.WriteString(strconv.FormatInt(n, 10))
		return
	}
	if looksLikeBool(value) {
		buf.WriteString(strings.ToLower(value))
		return
	}
	valueJSON, _ := json.Marshal(value)
	buf.Write(valueJSON)
}

func looksLikeBool(value string) bool {
	valueLower := strings.ToLower(value)
	return valueLower == "true" || valueLower == "false"
}
