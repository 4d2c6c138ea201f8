// Package spam holds the cheap heuristics that guard the lead-magnet form.
//
// A submission flagged here is answered exactly like a successful one so
// bots get no signal; callers only skip the emails.
package spam

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// MinFillMillis is the fastest plausible time, in milliseconds, for a human
// to fill in the form.
const MinFillMillis = 3000

// Reason names the heuristic that flagged a submission.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonDisposable Reason = "disposable_domain"
	ReasonTooFast    Reason = "too_fast"
	ReasonContent    Reason = "spam_content"
)

var disposableDomains = []string{
	"tempmail.com", "throwaway.email", "guerrillamail.com", "mailinator.com",
	"yopmail.com", "sharklasers.com", "guerrillamailblock.com", "grr.la",
	"guerrillamail.info", "guerrillamail.net", "trashmail.com", "trashmail.me",
	"trashmail.net", "dispostable.com", "maildrop.cc", "fakeinbox.com",
	"tempail.com", "tempr.email", "temp-mail.org", "temp-mail.io",
	"emailondeck.com", "getnada.com", "mohmal.com", "burnermail.io",
	"10minutemail.com", "minutemail.com", "emailfake.com", "crazymailing.com",
	"mailnesia.com", "mailtothis.com", "harakirimail.com",
}

var (
	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]{2,}$`)

	contentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)https?://`),
		regexp.MustCompile(`<[^>]*>`),
		regexp.MustCompile(`(?i)\[url`),
		regexp.MustCompile(`(?i)viagra|cialis|casino|crypto|bitcoin|lottery|prize|winner`),
	}
)

// Submission is the subset of the form the heuristics look at.
type Submission struct {
	Name    string
	Email   string
	Company string
	// TimingMillis is the client-reported fill time; zero means unknown.
	TimingMillis int64
}

// ValidEmail reports whether email looks like a deliverable address.
func ValidEmail(email string) bool {
	return emailRE.MatchString(email)
}

// IsDisposable reports whether the address belongs to a throwaway mailbox
// provider.
func IsDisposable(email string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	return lo.Contains(disposableDomains, strings.ToLower(email[at+1:]))
}

// ContainsSpam reports whether name or company carry links, markup, spam
// keywords or long runs of one character.
func ContainsSpam(name, company string) bool {
	text := name + " " + company
	if lo.SomeBy(contentPatterns, func(re *regexp.Regexp) bool { return re.MatchString(text) }) {
		return true
	}
	return hasRun(text, 6)
}

// Check runs the heuristics in order and returns the first that fires.
// The email must already have passed ValidEmail.
func Check(s Submission) Reason {
	switch {
	case IsDisposable(s.Email):
		return ReasonDisposable
	case s.TimingMillis > 0 && s.TimingMillis < MinFillMillis:
		return ReasonTooFast
	case ContainsSpam(s.Name, s.Company):
		return ReasonContent
	}
	return ReasonNone
}

// hasRun reports whether any rune repeats n or more times consecutively.
// RE2 has no backreferences, so (.)\1{5,} is spelled out here.
func hasRun(s string, n int) bool {
	var prev rune
	count := 0
	for i, r := range s {
		if i > 0 && r == prev && r != '\n' {
			count++
		} else {
			count = 1
		}
		if count >= n {
			return true
		}
		prev = r
	}
	return false
}
