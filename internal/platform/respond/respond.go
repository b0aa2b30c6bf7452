// Package respond renders router-level failures (unknown route, wrong method,
// panics) as RFC 9457 problem details so they match the errors Huma produces
// for registered operations.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	applog "github.com/janisto/multistage-demo/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	// errorSchemaPath matches the path Huma serves the ErrorModel schema under.
	errorSchemaPath = "/schemas/ErrorModel.json"

	msgNotFound           = "resource not found"
	msgInternalServerErr  = "internal server error"
	fmtMethodNotAllowed   = "method %s not allowed"
	msgProblemWriteFailed = "failed to write problem response"
)

// problem is huma.ErrorModel plus the $schema link Huma adds to its own error bodies.
type problem struct {
	Schema string              `json:"$schema,omitempty"`
	Title  string              `json:"title,omitempty"`
	Status int                 `json:"status,omitempty"`
	Detail string              `json:"detail,omitempty"`
	Errors []*huma.ErrorDetail `json:"errors,omitempty"`
}

// NotFoundHandler emits a 404 problem response.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, msgNotFound, nil)
	}
}

// MethodNotAllowedHandler emits a 405 problem response and advertises the
// methods the matched route does accept in the Allow header.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		writeProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf(fmtMethodNotAllowed, r.Method), nil)
	}
}

// Recoverer converts panics into 500 problem responses. http.ErrAbortHandler is
// re-panicked so net/http can abort the connection. When the handler already
// started the response the original status and body are left alone.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				var err error
				switch v := rec.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("%v", v)
				}
				applog.LogError(r.Context(), "panic recovered", err, zap.ByteString("stack", debug.Stack()))
				if rw.wroteHeader {
					return
				}
				writeProblem(rw, r, http.StatusInternalServerError, msgInternalServerErr, err)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

// responseWriter records whether the response has started.
type responseWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, detail string, cause error) {
	logProblem(r, status, detail, cause)

	schema := schemaURL(r)
	p := problem{
		Schema: schema,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}

	h := w.Header()
	ensureVary(h, "Origin", "Accept")
	h.Set("Link", "<"+schema+`>; rel="describedBy"`)

	var (
		body []byte
		err  error
	)
	if selectFormat(r.Header.Get("Accept")) {
		h.Set("Content-Type", contentTypeProblemCBOR)
		body, err = cbor.Marshal(p)
	} else {
		h.Set("Content-Type", contentTypeProblemJSON)
		body, err = marshalJSON(p)
	}
	if err != nil {
		applog.LogError(r.Context(), msgProblemWriteFailed, err)
		w.WriteHeader(status)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		applog.LogError(r.Context(), msgProblemWriteFailed, err)
	}
}

// marshalJSON encodes without HTML escaping; problem details echo request paths.
func marshalJSON(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimSuffix(sb.String(), "\n")), nil
}

func logProblem(r *http.Request, status int, detail string, cause error) {
	fields := []zap.Field{
		zap.Int("status", status),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if status >= http.StatusInternalServerError {
		applog.LogError(r.Context(), detail, cause, fields...)
		return
	}
	applog.LogWarn(r.Context(), detail, fields...)
}

func schemaURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + errorSchemaPath
}

// ensureVary adds each value to the Vary header unless already listed.
func ensureVary(h http.Header, values ...string) {
	present := make(map[string]struct{})
	for _, v := range h.Values("Vary") {
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				present[strings.ToLower(p)] = struct{}{}
			}
		}
	}
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := present[key]; ok {
			continue
		}
		present[key] = struct{}{}
		h.Add("Vary", v)
	}
}

// allowedMethods inspects chi's routing context to discover allowed methods.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	var allowed []string
	for _, method := range []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	} {
		if rctx.Routes.Match(chi.NewRouteContext(), method, routePath) && !slices.Contains(allowed, method) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// mediaRange is one element of an Accept header.
type mediaRange struct {
	typ     string
	subtype string
	q       float64
}

// specificity ranks how narrowly the range names a type: */* < application/* <
// application/*+cbor < application/cbor < application/problem+cbor.
func (m mediaRange) specificity() int {
	switch {
	case m.typ == "*":
		return 0
	case m.subtype == "*":
		return 1
	case strings.HasPrefix(m.subtype, "*+"):
		return 2
	case strings.Contains(m.subtype, "+"):
		return 4
	default:
		return 3
	}
}

func (m mediaRange) matches(typ, subtype string) bool {
	if m.typ == "*" {
		return true
	}
	if m.typ != typ {
		return false
	}
	if m.subtype == "*" || m.subtype == subtype {
		return true
	}
	if suffix, ok := strings.CutPrefix(m.subtype, "*+"); ok {
		_, s, found := strings.Cut(subtype, "+")
		return found && s == suffix
	}
	return false
}

// parseAccept splits an Accept header into media ranges. Missing or invalid q
// values count as 1; a bare type such as "text" is read as "text/*".
func parseAccept(header string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(header, ",") {
		params := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(params[0]))
		if mt == "" {
			continue
		}
		typ, subtype, ok := strings.Cut(mt, "/")
		if !ok {
			subtype = "*"
		}
		mr := mediaRange{typ: strings.TrimSpace(typ), subtype: strings.TrimSpace(subtype), q: 1}
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
				continue
			}
			q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || q < 0 || q > 1 {
				q = 1
			}
			mr.q = q
		}
		ranges = append(ranges, mr)
	}
	return ranges
}

// offer is the best (q, specificity rank) an Accept header grants a format.
type offer struct {
	q    float64
	rank int
}

func (o offer) better(other offer) bool {
	if o.q != other.q {
		return o.q > other.q
	}
	return o.rank > other.rank
}

// rate scores a concrete media type: the most specific matching range sets its q.
func rate(ranges []mediaRange, typ, subtype string) offer {
	best := offer{rank: -1}
	for _, mr := range ranges {
		if !mr.matches(typ, subtype) {
			continue
		}
		if s := mr.specificity(); s > best.rank {
			best = offer{q: mr.q, rank: s}
		}
	}
	if best.rank < 0 {
		return offer{}
	}
	return best
}

func rateFormat(ranges []mediaRange, subtypes ...string) offer {
	var best offer
	for _, st := range subtypes {
		if o := rate(ranges, "application", st); o.q > 0 && o.better(best) {
			best = o
		}
	}
	return best
}

// selectFormat reports whether CBOR should be used for a response given the
// Accept header. The q-value ranks first and specificity breaks ties; JSON wins
// every remaining tie, including an absent or unsatisfiable header.
func selectFormat(accept string) bool {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return false
	}
	cborOffer := rateFormat(ranges, "cbor", "problem+cbor")
	jsonOffer := rateFormat(ranges, "json", "problem+json")
	if cborOffer.q == 0 {
		return false
	}
	return cborOffer.better(jsonOffer)
}
