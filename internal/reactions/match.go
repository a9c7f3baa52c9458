package reactions

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PravEF/EFNadekoBot/internal/gateway"
	"github.com/PravEF/EFNadekoBot/internal/models"
)

// Placeholder tokens. Trigger-side tokens are resolved against the inbound
// message before comparison; %target% is response-only and captures the text
// after the trigger.
const (
	tokenTarget  = "%target%"
	tokenUser    = "%user%"
	tokenChannel = "%channel%"
	tokenMention = "%mention%"
)

// Match evaluates msg against the snapshot and returns every matching rule
// in the winning scope. Tenant rules fully shadow global ones: if any tenant
// rule matches, global rules are not considered at all. content is the text
// to match, which is msg.Content unless an alias substituted it.
func Match(snap Snapshot, msg *gateway.Message, content string, startWith bool) []models.Reaction {
	c := normalize(content)
	if c == "" {
		return nil
	}

	if rs := matchScope(snap.Tenant, msg, c, startWith); len(rs) > 0 {
		return rs
	}
	return matchScope(snap.Global, msg, c, startWith)
}

func matchScope(rules []models.Reaction, msg *gateway.Message, content string, startWith bool) []models.Reaction {
	var matched []models.Reaction
	for _, r := range rules {
		if matches(r, msg, content, startWith) {
			matched = append(matched, r)
		}
	}
	return matched
}

func matches(r models.Reaction, msg *gateway.Message, content string, startWith bool) bool {
	trigger := normalize(resolveContext(r.Trigger, msg))
	if trigger == "" {
		return false
	}

	if r.ContainsAnywhere && containsWord(content, trigger) {
		return true
	}

	hasTarget := strings.Contains(strings.ToLower(r.Response), tokenTarget)
	if (hasTarget || startWith) && strings.HasPrefix(content, trigger+" ") {
		return true
	}

	return content == trigger
}

// normalize prepares text for comparison: surrounding whitespace stripped,
// case folded.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// resolveContext substitutes the trigger's context tokens with values from
// the inbound message, so a trigger like "hi %user%" only fires for the
// matching author.
func resolveContext(trigger string, msg *gateway.Message) string {
	if !strings.Contains(trigger, "%") {
		return trigger
	}
	rep := strings.NewReplacer(
		tokenUser, msg.AuthorName,
		tokenChannel, msg.ChannelName,
		tokenMention, msg.Mention(),
	)
	return rep.Replace(trigger)
}

// containsWord reports whether word occurs in content bounded on both sides
// by a non-word rune or a string edge. A plain substring test is wrong here:
// "cat" must not match inside "concatenate".
func containsWord(content, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(content[start:], word)
		if i < 0 {
			return false
		}
		i += start
		if boundaryBefore(content, i) && boundaryAfter(content, i+len(word)) {
			return true
		}
		start = i + 1
	}
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
