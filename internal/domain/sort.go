package domain

import (
	"fmt"
	"slices"
	"strings"
)

// LocalSort re-orders an already fetched column without touching the network
type LocalSort string

const (
	LocalDefault    LocalSort = "default"
	LocalByUps      LocalSort = "ups"
	LocalByComments LocalSort = "num_comments"
)

func ParseLocalSort(s string) (LocalSort, error) {
	switch l := LocalSort(s); l {
	case "":
		return LocalDefault, nil
	case LocalDefault, LocalByUps, LocalByComments:
		return l, nil
	}
	return "", fmt.Errorf("%w: unknown order %q", ErrInvalidInput, s)
}

// SortPosts returns a copy of posts ordered descending by the given field.
// LocalDefault keeps API order.
func SortPosts(posts []Post, by LocalSort) []Post {
	out := slices.Clone(posts)
	switch by {
	case LocalByUps:
		slices.SortStableFunc(out, func(a, b Post) int { return b.Ups - a.Ups })
	case LocalByComments:
		slices.SortStableFunc(out, func(a, b Post) int { return b.NumComments - a.NumComments })
	}
	return out
}

// ErrorKind is a coarse classification of a user-facing error message
type ErrorKind string

const (
	ErrorGeneric  ErrorKind = "generic"
	ErrorNetwork  ErrorKind = "network"
	ErrorNotFound ErrorKind = "not_found"
)

func ClassifyError(msg string) ErrorKind {
	switch {
	case strings.Contains(msg, "network"):
		return ErrorNetwork
	case strings.Contains(msg, "not found"), strings.Contains(msg, "404"):
		return ErrorNotFound
	}
	return ErrorGeneric
}
