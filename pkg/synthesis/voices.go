package synthesis

import "strings"

// Voice selection data. The ladder below walks these in order, so the
// chosen voice is a pure function of the available list and this data.

// voicePriority maps a locale to known high-quality voice names for it,
// most preferred first.
var voicePriority = map[string][]string{
	"en-US": {
		"Google US English",
		"Microsoft Aria Online (Natural) - English (United States)",
		"Microsoft Jenny Online (Natural) - English (United States)",
		"Samantha",
		"Microsoft Zira - English (United States)",
	},
	"en-GB": {
		"Google UK English Female",
		"Microsoft Sonia Online (Natural) - English (United Kingdom)",
		"Daniel",
	},
}

// toneMarker is the gender/tone keyword looked for in voice names when
// no priority voice is available.
const toneMarker = "female"

// givenNames are recognizable voice given names associated with the
// desired tone, checked after the tone marker.
var givenNames = []string{
	"samantha", "aria", "jenny", "zira", "victoria",
	"allison", "ava", "susan", "karen", "moira", "tessa",
}

// Select picks the best available voice for a locale.
//
// The ladder is deterministic and total:
//  1. filter voices to the locale
//  2. first match in the locale's priority list
//  3. first locale voice whose name carries the tone marker
//  4. first locale voice whose name contains a known given name
//  5. first locale voice
//  6. first voice sharing the locale's language prefix, else the first
//     voice at all
//
// Returns false only when the voice list is empty; the caller then
// speaks with the platform default voice.
func Select(voices []Voice, locale string) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}

	var local []Voice
	for _, v := range voices {
		if strings.EqualFold(v.Lang, locale) {
			local = append(local, v)
		}
	}

	if len(local) > 0 {
		for _, want := range voicePriority[locale] {
			for _, v := range local {
				if v.Name == want {
					return v, true
				}
			}
		}
		for _, v := range local {
			if strings.Contains(strings.ToLower(v.Name), toneMarker) {
				return v, true
			}
		}
		for _, v := range local {
			name := strings.ToLower(v.Name)
			for _, given := range givenNames {
				if strings.Contains(name, given) {
					return v, true
				}
			}
		}
		return local[0], true
	}

	// No exact locale match: fall back to the language family, then to
	// whatever the platform offers first.
	prefix := locale
	if i := strings.IndexByte(locale, '-'); i > 0 {
		prefix = locale[:i]
	}
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Lang), strings.ToLower(prefix)) {
			return v, true
		}
	}
	return voices[0], true
}
