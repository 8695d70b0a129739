package service

import (
	"net/url"
	"strings"
	"time"

	"shortlink-be/internal/entities"
)

// Status is the terminal state of a resolution
type Status string

const (
	StatusAllowed           Status = "ALLOWED"
	StatusNotFound          Status = "NOT_FOUND"
	StatusExpired           Status = "EXPIRED"
	StatusPasswordRequired  Status = "PASSWORD_REQUIRED"
	StatusIncorrectPassword Status = "INCORRECT_PASSWORD"
	StatusMisconfigured     Status = "MISCONFIGURED"
)

func (s Status) Allowed() bool {
	return s == StatusAllowed
}

// Message is a human readable description of a denial
func (s Status) Message() string {
	switch s {
	case StatusAllowed:
		return ""
	case StatusNotFound:
		return "Short link not found"
	case StatusExpired:
		return "This link has expired"
	case StatusPasswordRequired:
		return "This link is password protected"
	case StatusIncorrectPassword:
		return "Incorrect password"
	case StatusMisconfigured:
		return "This link is misconfigured"
	default:
		return string(s)
	}
}

// PasswordVerifier compares a plaintext secret with a stored hash
type PasswordVerifier interface {
	Verify(plaintext, hash string) bool
}

// ResolveInput is the request context a link is evaluated against
type ResolveInput struct {
	Password  *string
	Query     url.Values
	UserAgent string
}

// Decision is the outcome of evaluating a link. Destination is only set when
// the status is ALLOWED. CanonicalURL is always the base destination with the
// query merged in, even when a device branch picked a different Destination.
type Decision struct {
	Status       Status
	Destination  string
	CanonicalURL string
}

// PolicyEvaluator runs the ordered access checks of a link:
// existence, expiry, password, device targeting validity, then destination selection.
type PolicyEvaluator struct {
	verifier PasswordVerifier
	now      func() time.Time
}

func NewPolicyEvaluator(verifier PasswordVerifier) *PolicyEvaluator {
	return &PolicyEvaluator{verifier: verifier, now: time.Now}
}

// Evaluate returns the decision for link, which may be nil when the code is unknown.
// The only error is ErrMalformedURL, for a stored base destination that cannot be parsed.
func (e *PolicyEvaluator) Evaluate(link *entities.Link, in ResolveInput) (Decision, error) {
	if link == nil {
		return Decision{Status: StatusNotFound}, nil
	}
	if link.IsExpired(e.now()) {
		return Decision{Status: StatusExpired}, nil
	}
	if status := e.checkPassword(link.Password.Enabled, link.Password.Hash, in.Password); status != StatusAllowed {
		return Decision{Status: status}, nil
	}
	if link.TargetingEnabled() && !link.DeviceTargeting.Complete() {
		return Decision{Status: StatusMisconfigured}, nil
	}
	return compose(link, in)
}

// checkPassword is shared with the visit password flow, which checks a snapshot instead of the link
func (e *PolicyEvaluator) checkPassword(enabled bool, hash string, supplied *string) Status {
	if !enabled {
		return StatusAllowed
	}
	if supplied == nil || *supplied == "" {
		return StatusPasswordRequired
	}
	if !e.verifier.Verify(*supplied, hash) {
		return StatusIncorrectPassword
	}
	return StatusAllowed
}

// compose merges the query into the base destination and picks the redirect target
func compose(link *entities.Link, in ResolveInput) (Decision, error) {
	canonical, err := MergeQuery(link.Destination, in.Query)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Status: StatusAllowed, Destination: canonical, CanonicalURL: canonical}
	if link.TargetingEnabled() {
		switch platformOf(in.UserAgent) {
		case platformAndroid:
			decision.Destination = link.DeviceTargeting.AndroidDestination
		case platformIOS:
			decision.Destination = link.DeviceTargeting.IOSDestination
		}
	}
	return decision, nil
}

type platform int

const (
	platformOther platform = iota
	platformAndroid
	platformIOS
)

func platformOf(userAgent string) platform {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "android"):
		return platformAndroid
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ipod"):
		return platformIOS
	default:
		return platformOther
	}
}
