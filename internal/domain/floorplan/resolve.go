package floorplan

import (
	"fmt"
	"strconv"
	"strings"
)

var leadingArticles = []string{"the ", "a ", "an ", "my ", "our "}

var ordinalWords = map[string]int{
	"first":   1,
	"second":  2,
	"third":   3,
	"fourth":  4,
	"fifth":   5,
	"sixth":   6,
	"seventh": 7,
	"eighth":  8,
	"ninth":   9,
	"tenth":   10,
	"last":    -1,
}

// Resolve は自由文の部屋参照を決定的に解決する
//
// 照合順:
//  1. 名前の完全一致（大文字小文字無視、冠詞除去後も試す）
//  2. 序数指定（"third bedroom" → 名前に "bedroom" を含む3番目の部屋）
//  3. 部分一致（挿入順で最初の部屋）
func (s *Store) Resolve(query string) (int, Room, error) {
	q := normalizeName(query)
	if q == "" {
		return -1, Room{}, NewValidationError("room", "reference must not be empty")
	}
	stripped := stripArticles(q)

	for _, candidate := range []string{q, stripped} {
		if idx := s.indexExact(candidate); idx >= 0 {
			return idx, s.rooms[idx], nil
		}
	}

	if n, term, ok := parseOrdinal(stripped); ok {
		if idx := s.indexNthContaining(term, n); idx >= 0 {
			return idx, s.rooms[idx], nil
		}
	}

	for _, candidate := range []string{q, stripped} {
		if idx := s.indexNthContaining(candidate, 1); idx >= 0 {
			return idx, s.rooms[idx], nil
		}
	}

	return -1, Room{}, fmt.Errorf("%w: %q", ErrNotFound, strings.TrimSpace(query))
}

func (s *Store) indexExact(normalized string) int {
	for i, r := range s.rooms {
		if normalizeName(r.Name) == normalized {
			return i
		}
	}
	return -1
}

// indexNthContaining はtermを含むn番目（-1は最後）の部屋のインデックスを返す
func (s *Store) indexNthContaining(term string, n int) int {
	if term == "" {
		return -1
	}

	matches := make([]int, 0)
	for i, r := range s.rooms {
		if strings.Contains(normalizeName(r.Name), term) {
			matches = append(matches, i)
		}
	}

	if n == -1 && len(matches) > 0 {
		return matches[len(matches)-1]
	}
	if n < 1 || n > len(matches) {
		return -1
	}
	return matches[n-1]
}

func stripArticles(q string) string {
	for _, article := range leadingArticles {
		if strings.HasPrefix(q, article) {
			return strings.TrimSpace(strings.TrimPrefix(q, article))
		}
	}
	return q
}

// parseOrdinal は "third bedroom" / "2nd bedroom" を (3, "bedroom") に分解
func parseOrdinal(q string) (int, string, bool) {
	head, rest, found := strings.Cut(q, " ")
	if !found {
		return 0, "", false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, "", false
	}

	if n, ok := ordinalWords[head]; ok {
		return n, rest, true
	}

	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if !strings.HasSuffix(head, suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(head, suffix))
		if err == nil && n > 0 {
			return n, rest, true
		}
	}

	return 0, "", false
}
