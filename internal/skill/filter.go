package skill

import "strings"

// Filter selects which skills activate for a turn based on trigger rules.
// Zero value activates always-triggered skills only.
type Filter struct {
	// UserMessage is matched (case-insensitive) against auto-trigger
	// keywords.
	UserMessage string

	// ManuallyActive names skills the caller explicitly activated.
	ManuallyActive []string
}

// apply selects skills in three passes, preserving catalog order within
// each pass: always-triggered, then keyword-matched auto, then manual.
func (f *Filter) apply(skills []Skill) []Skill {
	manual := make(map[string]bool, len(f.ManuallyActive))
	for _, name := range f.ManuallyActive {
		manual[name] = true
	}
	lowerMsg := strings.ToLower(f.UserMessage)

	var result []Skill

	for _, s := range skills {
		if s.Trigger == TriggerAlways {
			result = append(result, s)
		}
	}
	for _, s := range skills {
		if s.Trigger == TriggerAuto && keywordMatch(s, lowerMsg) {
			result = append(result, s)
		}
	}
	for _, s := range skills {
		if s.Trigger == TriggerManual && manual[s.Name] {
			result = append(result, s)
		}
	}

	return result
}

// keywordMatch reports whether any of the skill's keywords occur in the
// lowercased message.
func keywordMatch(s Skill, lowerMsg string) bool {
	if lowerMsg == "" {
		return false
	}
	for _, kw := range s.Keywords {
		if kw != "" && strings.Contains(lowerMsg, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
