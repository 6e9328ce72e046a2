package server

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/vango-dev/engineio/pkg/protocol"
)

// responseKind tags a response.
type responseKind int

const (
	// responseDescriptor is written from status, headers and body.
	responseDescriptor responseKind = iota

	// responsePassThrough means a transport already wrote the native
	// response (a WebSocket takeover) and nothing more is written.
	responsePassThrough
)

// header is one response header. Order is preserved on the wire.
type header struct {
	name, value string
}

// response is either a pass-through or a descriptor.
type response struct {
	kind    responseKind
	status  int
	headers []header
	body    []byte
}

func passThrough() response {
	return response{kind: responsePassThrough}
}

func textResponse(status int, body string) response {
	return response{
		status:  status,
		headers: []header{{"Content-Type", "text/plain"}},
		body:    []byte(body),
	}
}

// okResponse acknowledges a request, carrying packets when there are any.
func okResponse(packets []protocol.Packet) response {
	if len(packets) == 0 {
		return textResponse(http.StatusOK, "OK")
	}
	return response{
		status:  http.StatusOK,
		headers: []header{{"Content-Type", "text/plain; charset=UTF-8"}},
		body:    protocol.EncodePayload(packets),
	}
}

func badRequest() response {
	return textResponse(http.StatusBadRequest, "Bad Request")
}

func unauthorized() response {
	return textResponse(http.StatusUnauthorized, "Unauthorized")
}

func methodNotFound() response {
	return textResponse(http.StatusMethodNotAllowed, "Method Not Found")
}

func internalError() response {
	return textResponse(http.StatusInternalServerError, "Internal Server Error")
}

func (r *response) addHeader(name, value string) {
	r.headers = append(r.headers, header{name, value})
}

func (r response) headerValue(name string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.name, name) {
			return h.value, true
		}
	}
	return "", false
}

type compressor func([]byte) ([]byte, error)

var compressors = map[string]compressor{
	CompressionGzip:    gzipBytes,
	CompressionDeflate: deflateBytes,
}

func gzipBytes(b []byte) ([]byte, error) {
	return compressWith(gzip.NewWriter, b)
}

func deflateBytes(b []byte) ([]byte, error) {
	return compressWith(zlib.NewWriter, b)
}

func compressWith[W io.WriteCloser](newWriter func(io.Writer) W, b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := newWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// acceptedEncodings parses Accept-Encoding, ignoring quality values.
func acceptedEncodings(header string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, _, _ := strings.Cut(part, ";")
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			out[name] = true
		}
	}
	return out
}

// finalize applies compression and CORS to a descriptor. Pass-through
// responses are returned unchanged.
func (s *Server) finalize(res response, env *Environ) response {
	if res.kind == responsePassThrough {
		return res
	}

	cfg := s.config
	if cfg.HTTPCompression && len(res.body) >= cfg.CompressionThreshold {
		accepted := acceptedEncodings(env.AcceptEncoding)
		for _, method := range cfg.CompressionMethods {
			compress, ok := compressors[method]
			if !ok || !accepted[method] {
				continue
			}
			body, err := compress(res.body)
			if err != nil {
				s.logger.Warn("response compression failed", "method", method, "error", err)
				break
			}
			res.body = body
			res.addHeader("Content-Encoding", method)
			break
		}
	}

	res.headers = append(res.headers, s.corsHeaders(env)...)
	return res
}

// corsHeaders computes the CORS headers for a request. A disallowed origin
// gets none.
func (s *Server) corsHeaders(env *Environ) []header {
	if !s.config.originAllowed(env.Origin) {
		return nil
	}
	origin := env.Origin
	if origin == "" {
		origin = "*"
	}
	headers := []header{{"Access-Control-Allow-Origin", origin}}
	if env.RequestHeaders != "" {
		headers = append(headers, header{"Access-Control-Allow-Headers", env.RequestHeaders})
	}
	if s.config.CORSCredentials {
		headers = append(headers, header{"Access-Control-Allow-Credentials", "true"})
	}
	return headers
}

// writeResponse adapts a finalized response to the native writer.
func writeResponse(w http.ResponseWriter, res response) error {
	if res.kind == responsePassThrough {
		return nil
	}
	h := w.Header()
	for _, hdr := range res.headers {
		h.Add(hdr.name, hdr.value)
	}
	h.Set("Content-Length", strconv.Itoa(len(res.body)))
	w.WriteHeader(res.status)
	_, err := w.Write(res.body)
	return err
}
