package game

import (
	"unicode"

	"github.com/agnivade/levenshtein"

	"github.com/mcoot/paintergame/internal/model"
)

// HintMask replaces every unrevealed letter of a word hint
const HintMask = '_'

// sampleWords draws WordChoiceCount distinct candidates from the pool.
// A pool smaller than the count is offered whole.
func (g *Game) sampleWords() ([]string, error) {
	n := len(g.words)
	count := g.settings.WordChoiceCount
	if n == 0 {
		return nil, model.ErrWordGeneration
	}
	if n < count {
		return append([]string(nil), g.words...), nil
	}

	taken := make(map[int]bool, count)
	choices := make([]string, 0, count)
	for len(choices) < count {
		idx := g.random.Intn(n)
		placed := false
		for attempt := 0; attempt < g.maxAttempts; attempt++ {
			if !taken[idx] {
				taken[idx] = true
				choices = append(choices, g.words[idx])
				placed = true
				break
			}
			idx = (idx + 1) % n
		}
		if !placed {
			return nil, model.ErrWordGeneration
		}
	}
	return choices, nil
}

// maskWord hides every letter of word, keeping spaces
func maskWord(word string) []rune {
	hint := []rune(word)
	for i, r := range hint {
		if unicode.IsLetter(r) {
			hint[i] = HintMask
		}
	}
	return hint
}

func maskedPositions(hint []rune) []int {
	var out []int
	for i, r := range hint {
		if r == HintMask {
			out = append(out, i)
		}
	}
	return out
}

// isCloseGuess reports a near miss: one edit away from a word long enough to make that meaningful
func isCloseGuess(guess, word string) bool {
	if len([]rune(word)) < CloseGuessMinLength {
		return false
	}
	return levenshtein.ComputeDistance(guess, word) == 1
}
