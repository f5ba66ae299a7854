// Package helper implements the git credential-helper protocol: a key=value
// request on stdin, answered with exactly a username/password pair on stdout.
// Stdout is consumed verbatim by git, so nothing else may ever be written
// there; diagnostics belong on stderr and failures must exit non-zero with an
// empty stdout. A zero exit with missing fields would be treated by git as an
// authentication attempt with blank credentials.
package helper

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/gitswitch/gitswitch/pkg/gitswitch/resolver"
)

// ErrMalformedRequest indicates the request stream did not carry enough to
// derive an origin. Raised before any store or keychain I/O.
var ErrMalformedRequest = errors.New("malformed credential request")

// Request is one parsed helper invocation. Unrecognized keys are ignored.
type Request struct {
	URL      string
	Protocol string
	Host     string
	Path     string
}

// ParseRequest reads key=value lines until a blank line or end of input.
func ParseRequest(r io.Reader) (*Request, error) {
	req := &Request{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "url":
			req.URL = value
		case "protocol":
			req.Protocol = value
		case "host":
			req.Host = value
		case "path":
			req.Path = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credential request: %w", err)
	}
	return req, nil
}

// Origin derives the remote URL used as the mapping lookup key: the url field
// verbatim when present, else protocol://host.
func (r *Request) Origin() (string, error) {
	if r.URL != "" {
		return r.URL, nil
	}
	if r.Protocol != "" && r.Host != "" {
		return r.Protocol + "://" + r.Host, nil
	}
	return "", fmt.Errorf("%w: no url and no protocol/host pair", ErrMalformedRequest)
}

type Handler struct {
	resolver *resolver.Resolver
	log      *zap.SugaredLogger
}

func New(res *resolver.Resolver, log *zap.SugaredLogger) *Handler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handler{resolver: res, log: log}
}

// Run serves one helper invocation: parse the request from in, resolve the
// account, and write the response to out. On any failure nothing is written
// to out and the error propagates for a non-zero exit.
func (h *Handler) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	req, err := ParseRequest(in)
	if err != nil {
		return err
	}
	origin, err := req.Origin()
	if err != nil {
		return err
	}
	h.log.Debugw("resolving credential", "origin", origin)

	cred, err := h.resolver.Resolve(ctx, origin)
	if err != nil {
		h.log.Debugw("credential resolution failed", "origin", origin, "error", err)
		return err
	}
	if _, err := fmt.Fprintf(out, "username=%s\npassword=%s\n", cred.Username, cred.Secret); err != nil {
		return fmt.Errorf("failed to write credential response: %w", err)
	}
	return nil
}
