package download

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes a failed download.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not-found"
	KindOther           Kind = "other"
)

// ErrInvalidRef is returned for references that are neither "owner/name"
// nor "c/competition".
var ErrInvalidRef = errors.New("invalid dataset reference")

// IntegrationError reports a failed dataset download. Downloads are never
// retried automatically.
type IntegrationError struct {
	Kind       Kind
	Ref        string
	StatusCode int
	Message    string
	// RulesURL is where the user accepts the dataset rules (forbidden only).
	RulesURL string
	Err      error
}

func (e *IntegrationError) Error() string {
	switch e.Kind {
	case KindUnauthenticated:
		return "authentication failed: check the Kaggle username and API key"
	case KindForbidden:
		var b strings.Builder
		fmt.Fprintf(&b, "access to %s is forbidden: the dataset rules must be accepted first.\n", e.Ref)
		if isCompetition(e.Ref) {
			fmt.Fprintf(&b, "1. Open the competition page: %s\n", e.RulesURL)
			b.WriteString("2. Click 'Join Competition' or 'I Understand and Accept'\n")
			b.WriteString("3. Confirm the competition rules (email confirmation may be required)\n")
		} else {
			fmt.Fprintf(&b, "1. Open the dataset page: %s\n", e.RulesURL)
			b.WriteString("2. Click 'I Understand and Accept' or 'Accept Rules'\n")
		}
		b.WriteString("Then retry the download, or download the file manually and load it from disk.")
		return b.String()
	case KindNotFound:
		return fmt.Sprintf("dataset not found: %s; check the dataset reference", e.Ref)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s failed: status=%d %s", e.Ref, e.StatusCode, msg)
	}
	return fmt.Sprintf("download %s failed: %s", e.Ref, msg)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// IsKind reports whether err is an IntegrationError of kind k.
func IsKind(err error, k Kind) bool {
	var ie *IntegrationError
	return errors.As(err, &ie) && ie.Kind == k
}
