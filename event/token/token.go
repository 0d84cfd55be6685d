// Package token encodes events as compact, URL-safe text tokens so an event
// can travel as a QR code or link with no server behind it. The wire form is
// default-omitting JSON, gzip-compressed, base64url-encoded without padding,
// and prefixed with a format version tag.
package token

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/conductorapp/conductor/event"
)

// Prefix tags the current token format. Future formats bump the tag so old
// decoders fail loudly instead of misparsing.
const Prefix = "v1_"

// Decode stages, reported inside DecodeError.
const (
	StagePrefix     = "prefix"
	StageBase64     = "base64"
	StageDecompress = "decompress"
	StageJSON       = "json"
	StageValidate   = "validate"
)

// DecodeError is the single error surface of Decode: whatever step fails,
// the caller sees one typed error and never a partial event.
type DecodeError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event token (%s): %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(stage string, err error) *DecodeError {
	return &DecodeError{Stage: stage, Err: err}
}

// Encode serializes e into a shareable token. The event should already have
// passed event.ValidateAndComplete; defaults are omitted on the wire and
// restored on decode.
func Encode(e event.Event) (string, error) {
	payload, err := event.MarshalCompact(e)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return "", fmt.Errorf("init compressor: %w", err)
	}
	if _, err := zw.Write(payload); err != nil {
		return "", fmt.Errorf("compress event: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress event: %w", err)
	}

	return Prefix + base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode and validates the result. Whatever stage fails,
// the failure comes back as *DecodeError.
func Decode(tok string) (event.Event, error) {
	body, ok := strings.CutPrefix(tok, Prefix)
	if !ok {
		return event.Event{}, decodeErr(StagePrefix, fmt.Errorf("not a %q token", Prefix))
	}

	compressed, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return event.Event{}, decodeErr(StageBase64, err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return event.Event{}, decodeErr(StageDecompress, err)
	}
	payload, err := io.ReadAll(zr)
	if cerr := zr.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return event.Event{}, decodeErr(StageDecompress, err)
	}

	ev, err := event.ParseJSON(payload)
	if err != nil {
		var verr *event.ValidationError
		if errors.As(err, &verr) {
			return event.Event{}, decodeErr(StageValidate, err)
		}
		return event.Event{}, decodeErr(StageJSON, err)
	}
	return ev, nil
}

// ExtractToken pulls a bare token out of the transport forms the app
// accepts: a raw token, a URL fragment ("#v1_..."), an "event" query
// parameter, or the conductor://event/<token> scheme.
func ExtractToken(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, Prefix) {
		return input, true
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(u.Fragment, Prefix) {
		return u.Fragment, true
	}
	if tok := u.Query().Get("event"); strings.HasPrefix(tok, Prefix) {
		return tok, true
	}
	if u.Scheme == "conductor" {
		tok := strings.TrimPrefix(u.Path, "/")
		if tok == "" {
			tok = u.Opaque
		}
		if strings.HasPrefix(tok, Prefix) {
			return tok, true
		}
	}
	return "", false
}
