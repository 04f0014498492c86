package services

import (
	"strings"
	"unicode"

	"github.com/AnshRaj112/bolt-backend/pkg/utils"
)

// Names that would let a player pass as staff on leaderboards and friend lists.
var reservedNames = []string{
	"admin",
	"administrator",
	"bolt",
	"moderator",
	"mod",
	"official",
	"staff",
	"support",
	"system",
}

// lookalikes maps common obfuscation characters to the letter they imitate.
var lookalikes = strings.NewReplacer(
	"@", "a",
	"4", "a",
	"3", "e",
	"1", "i",
	"!", "i",
	"0", "o",
	"$", "s",
	"5", "s",
	"7", "t",
	"а", "a", // Cyrillic
	"е", "e", // Cyrillic
	"о", "o", // Cyrillic
)

// CleanHandle lowercases a username, undoes lookalike substitutions and
// collapses repeated letters, splitting on anything that is not a letter.
// "4dm1n_" becomes "admin", "b0lt__offic1al" becomes "bolt oficial".
func CleanHandle(name string) string {
	cleaned := lookalikes.Replace(strings.ToLower(name))

	var b strings.Builder
	var last rune
	for _, r := range cleaned {
		if !unicode.IsLetter(r) {
			r = ' '
		}
		if r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CheckReservedUsername rejects usernames whose words match a reserved name.
// Whole-word matching keeps names like "modern_gamer" or "boltzmann" allowed.
func CheckReservedUsername(username string) error {
	words := strings.Fields(CleanHandle(username))
	joined := strings.Join(words, "")
	for _, reserved := range reservedNames {
		canon := collapse(reserved)
		if joined == canon {
			return reservedError()
		}
		for _, w := range words {
			if w == canon {
				return reservedError()
			}
		}
	}
	return nil
}

func reservedError() error {
	return &utils.ValidationError{Field: "username", Message: "This username is reserved"}
}

// collapse squeezes repeated letters so reserved names compare against cleaned input.
func collapse(s string) string {
	var b strings.Builder
	var last rune
	for _, r := range s {
		if r != last {
			b.WriteRune(r)
		}
		last = r
	}
	return b.String()
}
