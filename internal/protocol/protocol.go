// Package protocol implements the line-oriented verification protocol.
//
// A request is one line of comma-separated tokens:
//
//	ACTION,file_1,...,file_n,word
//
// where ACTION is Q (query) or C (challenge) and at least one file is named.
// The response is a single line holding "true" or "false". Requests that do
// not parse get no response.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/errors"
)

// Action selects between an optimistic query and an authoritative challenge.
type Action string

const (
	ActionQuery     Action = "Q"
	ActionChallenge Action = "C"
)

const (
	separator = ","
	minTokens = 3
)

// MaxLineLength bounds a request line, terminator included. Longer lines
// are dropped as malformed.
const MaxLineLength = 64 << 10

const maxResponseLength = 16

// reserved are the bytes the line format uses for framing; no file id or
// word may contain them.
const reserved = ",\r\n"

// Request is one parsed request line.
type Request struct {
	Action Action
	Files  []string
	Word   string
}

// String renders r as a request line without the trailing newline.
func (r Request) String() string {
	tokens := make([]string, 0, len(r.Files)+2)
	tokens = append(tokens, string(r.Action))
	tokens = append(tokens, r.Files...)
	tokens = append(tokens, r.Word)
	return strings.Join(tokens, separator)
}

// Validate reports whether r can be written as a line that parses back to
// r: a known action, at least one file, and no token containing a comma or
// a line terminator.
func (r Request) Validate() error {
	switch r.Action {
	case ActionQuery, ActionChallenge:
	default:
		return apperrors.Newf(apperrors.ErrUnknownAction, "%q", string(r.Action))
	}
	if len(r.Files) == 0 {
		return apperrors.New(apperrors.ErrMalformedRequest, "no files named")
	}
	for _, file := range r.Files {
		if strings.ContainsAny(file, reserved) {
			return apperrors.Newf(apperrors.ErrMalformedRequest, "file id %q contains a separator", file)
		}
	}
	if strings.ContainsAny(r.Word, reserved) {
		return apperrors.Newf(apperrors.ErrMalformedRequest, "word %q contains a separator", r.Word)
	}
	if n := len(r.String()) + 1; n > MaxLineLength {
		return apperrors.Newf(apperrors.ErrMalformedRequest, "request line is %d bytes, limit %d", n, MaxLineLength)
	}
	return nil
}

// Parse splits a request line. Trailing line terminators are ignored; all
// other bytes, including surrounding spaces, belong to the tokens.
func Parse(line string) (Request, error) {
	line = strings.TrimRight(line, "\r\n")
	tokens := strings.Split(line, separator)
	if len(tokens) < minTokens {
		return Request{}, apperrors.Newf(apperrors.ErrMalformedRequest,
			"%d tokens, need at least %d", len(tokens), minTokens)
	}

	action := Action(tokens[0])
	switch action {
	case ActionQuery, ActionChallenge:
	default:
		return Request{}, apperrors.Newf(apperrors.ErrUnknownAction, "%q", tokens[0])
	}

	return Request{
		Action: action,
		Files:  tokens[1 : len(tokens)-1],
		Word:   tokens[len(tokens)-1],
	}, nil
}

// ReadRequest reads and parses one line from r. A final line without a
// newline is accepted. A line longer than MaxLineLength fails with
// ErrMalformedRequest once the limit is reached, without reading further.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := readLine(r, MaxLineLength)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return Request{}, fmt.Errorf("reading request line: %w", err)
	}
	return Parse(line)
}

// readLine reads through the next newline, failing once more than limit
// bytes have been read.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if len(line)+len(chunk) > limit {
			return "", apperrors.Newf(apperrors.ErrMalformedRequest, "line exceeds %d bytes", limit)
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(line), err
	}
}

// WriteRequest validates req and writes it as one newline-terminated line.
func WriteRequest(w io.Writer, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := io.WriteString(w, req.String()+"\n"); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	return nil
}

// WriteResponse writes the boolean result line.
func WriteResponse(w io.Writer, result bool) error {
	if _, err := io.WriteString(w, strconv.FormatBool(result)+"\n"); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

// ReadResponse reads one response line. io.EOF before any byte means the
// server dropped the request.
func ReadResponse(r *bufio.Reader) (bool, error) {
	line, err := readLine(r, maxResponseLength)
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return false, err
	}
	result, err := strconv.ParseBool(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return false, apperrors.Newf(apperrors.ErrMalformedRequest, "response %q", line)
	}
	return result, nil
}
