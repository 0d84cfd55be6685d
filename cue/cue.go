// Package cue resolves which audio a given action should produce. Resolution
// walks a deterministic fallback chain from full-phrase pack cue through
// word-grain assembly down to synthesized speech, and is pure lookup with no
// side effects, so the whole chain is unit-testable without an audio device.
// Only the session's dispatch step actually plays anything.
package cue

import (
	"strconv"
	"strings"
	"time"

	"github.com/conductorapp/conductor/event"
)

// AssetRef locates a single audio asset inside an installed resource pack.
type AssetRef struct {
	Pack string // pack id
	Path string // asset path, resolved by the pack store
}

// Pack is the read-only surface of an installed resource pack. Import and
// zip validation happen elsewhere; the resolver only ever looks keys up.
type Pack struct {
	ID     string
	Cues   map[string]AssetRef // cue key -> full-phrase asset
	Grains map[string]AssetRef // lowercase word -> word asset
}

// Library is read-only access to the installed packs.
type Library interface {
	// Pack returns the pack with the given id, if installed.
	Pack(id string) (*Pack, bool)
}

// CategoryKind distinguishes the three announcement moments of an action.
type CategoryKind int

const (
	// KindNotice is the "get ready" announcement at the notice lead.
	KindNotice CategoryKind = iota
	// KindCountdown is one numeric countdown beep.
	KindCountdown
	// KindTrigger is the announcement at the trigger instant.
	KindTrigger
)

// Category names the cue being resolved. Countdown categories carry the
// second mark being spoken.
type Category struct {
	Kind  CategoryKind
	Count int // seconds remaining, countdown only
}

// Notice returns the notice category.
func Notice() Category { return Category{Kind: KindNotice} }

// Countdown returns the countdown category for n seconds remaining.
func Countdown(n int) Category { return Category{Kind: KindCountdown, Count: n} }

// Trigger returns the trigger category.
func Trigger() Category { return Category{Kind: KindTrigger} }

// Tier identifies which fallback tier answered a resolution.
type Tier int

const (
	// TierPackCue is a full-phrase asset from a pack's cue map.
	TierPackCue Tier = iota
	// TierGrains is a word-by-word assembly from a pack's grain map.
	TierGrains
	// TierSpeech is a text-to-speech request.
	TierSpeech
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierPackCue:
		return "pack-cue"
	case TierGrains:
		return "grains"
	case TierSpeech:
		return "speech"
	default:
		return "unknown"
	}
}

// DefaultGrainGap is the pause inserted between assembled word grains.
const DefaultGrainGap = 80 * time.Millisecond

// Resolution is the outcome of the fallback chain. Exactly one of Asset,
// Grains, or Speech is meaningful, per Tier.
type Resolution struct {
	Tier     Tier
	Asset    AssetRef      // TierPackCue
	Grains   []AssetRef    // TierGrains, played back-to-back
	GrainGap time.Duration // inter-grain pause, TierGrains
	Speech   string        // TierSpeech utterance
}

// Resolve walks the fallback chain for one action and category. It never
// fails: a missing pack or key simply falls through, and the speech tier
// always answers. Degrading below speech (beep codes, visual only) is the
// session's call, made from its probed audio mode.
func Resolve(a event.Action, c Category, lib Library) Resolution {
	if res, ok := resolvePackCue(a, c, lib); ok {
		return res
	}
	if res, ok := resolveGrains(a, c, lib); ok {
		return res
	}
	return Resolution{Tier: TierSpeech, Speech: FallbackText(a, c)}
}

// resolvePackCue is tier 1: a category-keyed full-phrase asset.
func resolvePackCue(a event.Action, c Category, lib Library) (Resolution, bool) {
	if lib == nil || a.Pack == "" {
		return Resolution{}, false
	}
	pack, ok := lib.Pack(a.Pack)
	if !ok {
		return Resolution{}, false
	}
	key, ok := cueKey(a, c)
	if !ok {
		return Resolution{}, false
	}
	asset, ok := pack.Cues[key]
	if !ok {
		return Resolution{}, false
	}
	return Resolution{Tier: TierPackCue, Asset: asset}, true
}

// cueKey derives the pack lookup key for a category: the bare cue for the
// trigger, "notice-{cue}" for the notice, "countdown-{n}" for countdowns.
func cueKey(a event.Action, c Category) (string, bool) {
	switch c.Kind {
	case KindTrigger:
		if a.Cue == "" {
			return "", false
		}
		return a.Cue, true
	case KindNotice:
		if a.Cue == "" {
			return "", false
		}
		return "notice-" + a.Cue, true
	case KindCountdown:
		return "countdown-" + strconv.Itoa(c.Count), true
	default:
		return "", false
	}
}

// resolveGrains is tier 2: assemble the phrase word by word. All words must
// be present; a single miss fails the whole tier.
func resolveGrains(a event.Action, c Category, lib Library) (Resolution, bool) {
	if lib == nil || a.Pack == "" {
		return Resolution{}, false
	}
	pack, ok := lib.Pack(a.Pack)
	if !ok || len(pack.Grains) == 0 {
		return Resolution{}, false
	}

	words := phraseWords(FallbackText(a, c))
	if len(words) == 0 {
		return Resolution{}, false
	}
	grains := make([]AssetRef, 0, len(words))
	for _, w := range words {
		asset, ok := pack.Grains[w]
		if !ok {
			return Resolution{}, false
		}
		grains = append(grains, asset)
	}
	return Resolution{Tier: TierGrains, Grains: grains, GrainGap: DefaultGrainGap}, true
}

// FallbackText is the utterance synthesized when no pack asset answers:
// the action's own text at the trigger, a "get ready" phrasing for the
// notice, and the spoken number for countdowns.
func FallbackText(a event.Action, c Category) string {
	switch c.Kind {
	case KindNotice:
		return "Get ready to " + a.Action
	case KindCountdown:
		return NumberWord(c.Count)
	default:
		return a.Action
	}
}

// phraseWords lowercases and strips punctuation from a phrase, yielding the
// grain-map lookup keys.
func phraseWords(phrase string) []string {
	fields := strings.Fields(strings.ToLower(phrase))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

var numberWords = []string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight",
	"nine", "ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen",
	"sixteen", "seventeen", "eighteen", "nineteen", "twenty",
}

// NumberWord spells out small countdown numbers; larger offsets fall back to
// digits, which every speech engine reads correctly anyway.
func NumberWord(n int) string {
	if n >= 0 && n < len(numberWords) {
		return numberWords[n]
	}
	return strconv.Itoa(n)
}
