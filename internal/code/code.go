// Copyright (c) 2026 Whisperwall Contributors
// SPDX-License-Identifier: GPL-3.0-or-later

// Package code generates and validates activation codes: three
// dash-separated segments of eight lowercase-alphanumeric characters,
// roughly 124 bits of entropy per code.
package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const (
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	segmentLen   = 8
	segmentCount = 3
)

// pattern matches a well-formed activation code.
var pattern = regexp.MustCompile(`^[a-z0-9]{8}-[a-z0-9]{8}-[a-z0-9]{8}$`)

// Generate returns a new random activation code. Every character is drawn
// uniformly from the alphabet using a cryptographically strong source.
func Generate() (string, error) {
	segments := make([]string, segmentCount)
	for i := range segments {
		seg, err := segment()
		if err != nil {
			return "", err
		}
		segments[i] = seg
	}
	return strings.Join(segments, "-"), nil
}

// IsValid reports whether s has the shape of a generated activation code.
func IsValid(s string) bool {
	return pattern.MatchString(s)
}

func segment() (string, error) {
	var sb strings.Builder
	sb.Grow(segmentLen)
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < segmentLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading random source: %w", err)
		}
		sb.WriteByte(alphabet[n.Int64()])
	}
	return sb.String(), nil
}
