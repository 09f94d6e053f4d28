package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fin-ledger/models_package/options"
)

// maxBodyBytes caps request bodies; every accepted body is a handful of
// short fields.
const maxBodyBytes = 1 << 20

// errBadRequest marks input the client can fix.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// params is a flattened view of a form or JSON object body.
type params map[string]string

// readParams accepts application/json objects as well as urlencoded and
// multipart forms. JSON numbers and booleans are kept in their literal form.
func readParams(r *http.Request) (params, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return readJSON(r)
	}

	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxBodyBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, badRequest("malformed form: %v", err)
	}
	p := params{}
	for key, values := range r.PostForm {
		if len(values) > 0 {
			p[key] = values[0]
		}
	}
	return p, nil
}

func readJSON(r *http.Request) (params, error) {
	var raw map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, badRequest("malformed json body: %v", err)
	}

	p := params{}
	for key, v := range raw {
		switch v := v.(type) {
		case string:
			p[key] = v
		case json.Number:
			p[key] = v.String()
		case bool:
			p[key] = strconv.FormatBool(v)
		case nil:
		default:
			return nil, badRequest("field %q must be a string or a number", key)
		}
	}
	return p, nil
}

func (p params) get(key string) string {
	return strings.TrimSpace(p[key])
}

// name accepts both "name" and "username".
func (p params) name() string {
	if v := p.get("name"); v != "" {
		return v
	}
	return p.get("username")
}

// password is returned exactly as submitted.
func (p params) password() string {
	return p["password"]
}

// require fails on the first missing field. "name" is satisfied by its
// "username" alias; "password" is checked untrimmed.
func (p params) require(keys ...string) error {
	for _, key := range keys {
		v := p.get(key)
		switch key {
		case "name":
			v = p.name()
		case "password":
			v = p.password()
		}
		if v == "" {
			return badRequest("%s is required", key)
		}
	}
	return nil
}

func (p params) int64(key string) (int64, error) {
	v, err := strconv.ParseInt(p.get(key), 10, 64)
	if err != nil {
		return 0, badRequest("%s must be an integer", key)
	}
	return v, nil
}

// bearerToken reads the Authorization header first and falls back to the
// access_token cookie. A missing token yields "".
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// historyOptions parses the /transactions query string. Amount bounds are
// integers, time bounds RFC 3339, and both ends are optional.
func historyOptions(q url.Values) (*options.TransactionOptions, error) {
	opts := options.NewTransactionOptions()

	var amount options.IntRange
	for key, dst := range map[string]**int64{"min_amount": &amount.Low, "max_amount": &amount.High} {
		if v := q.Get(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, badRequest("%s must be an integer", key)
			}
			*dst = &n
		}
	}
	if amount.Low != nil || amount.High != nil {
		opts.SetAmountRange(&amount)
	}

	var created options.TimeRange
	for key, dst := range map[string]**time.Time{"from": &created.Low, "to": &created.High} {
		if v := q.Get(key); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, badRequest("%s must be an RFC 3339 timestamp", key)
			}
			*dst = &ts
		}
	}
	if created.Low != nil || created.High != nil {
		opts.SetTimeRange(&created)
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, badRequest("limit must be a non-negative integer")
		}
		opts.SetLimit(n)
	}
	return opts, nil
}
