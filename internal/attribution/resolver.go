package attribution

import (
	"strings"

	"chorus/internal/interview"
)

const speakerPrefix = "SPEAKER "

// Context indexes an interview's speaker-to-person links under every alias a
// transcript or an LLM response might use for them. It is ephemeral; nothing
// in it is persisted.
type Context struct {
	personIDByKey          map[string]string
	speakerLabelToPersonID map[string]string
	keyByPersonID          map[string]string
}

// BuildContext indexes the given people rows. Each row registers its raw
// transcript key, the upper-cased key, the "SPEAKER "-stripped suffix, the
// display name, and the canonical person name, all pointing at the same
// person id.
func BuildContext(people []interview.Person) *Context {
	ctx := &Context{
		personIDByKey:          make(map[string]string, len(people)),
		speakerLabelToPersonID: make(map[string]string, len(people)*4),
		keyByPersonID:          make(map[string]string, len(people)),
	}
	for _, p := range people {
		key := strings.TrimSpace(p.TranscriptKey)
		if key == "" || p.PersonID == "" {
			continue
		}
		ctx.personIDByKey[key] = p.PersonID
		if _, seen := ctx.keyByPersonID[p.PersonID]; !seen {
			ctx.keyByPersonID[p.PersonID] = key
		}
		ctx.registerLabel(key, p.PersonID)
		ctx.registerLabel(StripSpeakerPrefix(key), p.PersonID)
		ctx.registerLabel(p.DisplayName, p.PersonID)
		ctx.registerLabel(p.PersonName, p.PersonID)
	}
	return ctx
}

func (c *Context) registerLabel(label, personID string) {
	normalized := NormalizeLabel(label)
	if normalized == "" {
		return
	}
	if _, exists := c.speakerLabelToPersonID[normalized]; !exists {
		c.speakerLabelToPersonID[normalized] = personID
	}
}

// Size returns the number of distinct people indexed.
func (c *Context) Size() int {
	if c == nil {
		return 0
	}
	return len(c.keyByPersonID)
}

// KeyForPerson returns the transcript key first registered for a person id.
func (c *Context) KeyForPerson(personID string) string {
	if c == nil {
		return ""
	}
	return c.keyByPersonID[personID]
}

// ResolvePersonID maps a speaker label to a person id. Resolution order:
// exact raw key, case-insensitive label, label with the "SPEAKER " prefix
// stripped, then the fallback. An unknown label with no fallback resolves to
// the empty string, leaving the evidence unattributed.
func ResolvePersonID(key string, ctx *Context, fallback string) string {
	if ctx == nil {
		return fallback
	}
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return fallback
	}
	if id, ok := ctx.personIDByKey[trimmed]; ok {
		return id
	}
	if id, ok := ctx.speakerLabelToPersonID[NormalizeLabel(trimmed)]; ok {
		return id
	}
	if stripped := StripSpeakerPrefix(trimmed); stripped != trimmed {
		if id, ok := ctx.speakerLabelToPersonID[NormalizeLabel(stripped)]; ok {
			return id
		}
	}
	return fallback
}

// NormalizeLabel collapses a speaker label for case-insensitive lookup.
func NormalizeLabel(label string) string {
	return strings.ToUpper(strings.Join(strings.Fields(label), " "))
}

// StripSpeakerPrefix removes a leading "SPEAKER " (any case) from a label, so
// "Speaker A" and "A" resolve identically.
func StripSpeakerPrefix(label string) string {
	trimmed := strings.TrimSpace(label)
	if len(trimmed) > len(speakerPrefix) && strings.EqualFold(trimmed[:len(speakerPrefix)], speakerPrefix) {
		return strings.TrimSpace(trimmed[len(speakerPrefix):])
	}
	return trimmed
}
