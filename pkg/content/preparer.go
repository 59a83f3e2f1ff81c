package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MaxContentBytes is the maximum serialized size the management plane
// accepts for a resource-control policy document.
const MaxContentBytes = 5120

// Substitution is an ordered literal from→to replacement applied to a
// prepared document. Substitutions apply in declaration order; each one
// operates on the output of the previous, so a later substitution can
// re-match text produced by an earlier one.
type Substitution struct {
	From string
	To   string
}

// ParseSubstitutions parses a comma-separated list of from:to pairs as
// accepted on the command line, e.g. "ACCOUNT_ID:123456789012,REGION:eu-west-1".
func ParseSubstitutions(s string) ([]Substitution, error) {
	if s == "" {
		return nil, nil
	}

	var subs []Substitution
	for _, pair := range strings.Split(s, ",") {
		from, to, ok := strings.Cut(pair, ":")
		if !ok || from == "" {
			return nil, fmt.Errorf("invalid substitution %q: expected from:to", pair)
		}
		subs = append(subs, Substitution{From: from, To: to})
	}
	return subs, nil
}

// Preparer canonicalizes policy documents and applies substitutions.
// A Preparer is immutable and safe for reuse across documents.
type Preparer struct {
	subs []Substitution
}

// NewPreparer creates a Preparer with the given substitution list.
func NewPreparer(subs []Substitution) *Preparer {
	return &Preparer{subs: subs}
}

// Prepare parses raw as JSON, re-serializes it with no extraneous
// whitespace, applies the configured substitutions in order, and enforces
// the size budget. The output is byte-identical across repeated calls
// with the same inputs.
func (p *Preparer) Prepare(raw []byte) (string, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", &MalformedContentError{Cause: err}
	}

	minified, err := json.Marshal(doc)
	if err != nil {
		return "", &MalformedContentError{Cause: err}
	}

	out := string(minified)
	for _, s := range p.subs {
		out = strings.ReplaceAll(out, s.From, s.To)
	}

	if len(out) > MaxContentBytes {
		return "", &ContentTooLargeError{Size: len(out), Limit: MaxContentBytes}
	}

	return out, nil
}

// PrepareFile reads the document at path and prepares it. Read failures
// are reported as MalformedContentError so callers can treat unreadable
// and unparsable documents uniformly.
func (p *Preparer) PrepareFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &MalformedContentError{Path: path, Cause: err}
	}

	out, err := p.Prepare(raw)
	if err != nil {
		var malformed *MalformedContentError
		if errors.As(err, &malformed) {
			malformed.Path = path
		}
		return "", err
	}

	return out, nil
}
