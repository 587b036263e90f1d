package client

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Selection is an inclusive, 1-based line range. A zero End means "to the
// last line".
type Selection struct {
	Start int
	End   int
}

// ParseSelection accepts "a:b", "a:", ":b" and "a".
func ParseSelection(s string) (*Selection, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	startStr, endStr, ranged := strings.Cut(s, ":")
	if !ranged {
		endStr = startStr
	}

	sel := &Selection{Start: 1}
	if startStr != "" {
		start, err := strconv.Atoi(startStr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid selection start in %q", s)
		}
		sel.Start = start
	}
	if endStr != "" {
		end, err := strconv.Atoi(endStr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid selection end in %q", s)
		}
		sel.End = end
	}
	if sel.Start < 1 || (sel.End != 0 && sel.End < sel.Start) {
		return nil, errors.Errorf("invalid selection %q", s)
	}
	return sel, nil
}

func (s *Selection) String() string {
	if s == nil {
		return "whole file"
	}
	if s.End == 0 {
		return fmt.Sprintf("lines %d-end", s.Start)
	}
	return fmt.Sprintf("lines %d-%d", s.Start, s.End)
}

// Apply cuts the selected lines out of content. A nil selection returns
// content unchanged.
func (s *Selection) Apply(content string) (string, error) {
	if s == nil {
		return content, nil
	}
	if s.Start < 1 || (s.End != 0 && s.End < s.Start) {
		return "", errors.Errorf("invalid selection %d:%d", s.Start, s.End)
	}
	lines := strings.SplitAfter(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	end := s.End
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if s.Start > len(lines) {
		return "", errors.Errorf("selection starts at line %d but source has %d lines", s.Start, len(lines))
	}
	return strings.Join(lines[s.Start-1:end], ""), nil
}
