package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const (
	shortIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ_-"
	shortIDLength   = 10
)

// ShortID returns a random 10 character identifier used as the initial username.
func ShortID() (string, error) {
	return gonanoid.Generate(shortIDAlphabet, shortIDLength)
}
