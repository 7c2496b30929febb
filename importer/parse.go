package importer

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lottery-insight-server/apperrors"
	"lottery-insight-server/game"
)

// Accepted draw date layouts, tried in order.
var dateLayouts = []string{time.DateOnly, "01/02/2006", "2006/01/02"}

// Parsed is the outcome of decoding a feed: the valid draws plus the
// number of rows that were dropped.
type Parsed struct {
	Draws   []game.Draw
	Skipped int
}

// ParseCSV decodes draws from CSV. Two layouts are understood:
//
//   - header mode: a header row naming main_numbers and draw_date (and
//     optionally bonus_numbers); number fields hold space- or
//     comma-separated integers.
//   - positional mode: draw_date, then rules.MainCount main numbers, then
//     an optional bonus number per column. A leading row whose first cell
//     starts with "draw" is treated as a header and skipped.
//
// Rows with an unparseable date or numbers that do not fit rules are
// skipped, not fatal.
func ParseCSV(r io.Reader, rules game.Rules) (Parsed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Parsed{}, apperrors.Validation("malformed csv: %v", err)
	}
	if len(records) == 0 {
		return Parsed{}, nil
	}

	var out Parsed
	header := normalizeHeader(records[0])
	idxDate, hasDate := header["draw_date"]
	idxMain, hasMain := header["main_numbers"]
	if hasMain {
		if !hasDate {
			return Parsed{}, apperrors.Validation("csv_missing_required_columns")
		}
		idxBonus, hasBonus := header["bonus_numbers"]
		for _, rec := range records[1:] {
			if blank(rec) {
				continue
			}
			var bonus []int
			if hasBonus && idxBonus < len(rec) {
				bonus = splitNumbers(rec[idxBonus])
			}
			if idxDate >= len(rec) || idxMain >= len(rec) {
				out.Skipped++
				continue
			}
			out.add(rules, rec[idxDate], splitNumbers(rec[idxMain]), bonus)
		}
		return out, nil
	}

	for i, rec := range records {
		if blank(rec) {
			continue
		}
		if i == 0 && strings.HasPrefix(strings.ToLower(strings.TrimSpace(rec[0])), "draw") {
			continue
		}
		if len(rec) < 1+rules.MainCount {
			out.Skipped++
			continue
		}
		main, ok := atoiAll(rec[1 : 1+rules.MainCount])
		if !ok {
			out.Skipped++
			continue
		}
		var bonus []int
		if rules.HasBonus() && len(rec) >= 1+rules.MainCount+rules.BonusCount {
			if b, ok := atoiAll(rec[1+rules.MainCount : 1+rules.MainCount+rules.BonusCount]); ok {
				bonus = b
			}
		}
		out.add(rules, rec[0], main, bonus)
	}
	return out, nil
}

// jsonDraw is one element of a JSON feed.
type jsonDraw struct {
	DrawDate string `json:"draw_date"`
	Main     []int  `json:"main"`
	Bonus    []int  `json:"bonus"`
	Numbers  *struct {
		Main  []int `json:"main"`
		Bonus []int `json:"bonus"`
	} `json:"numbers"`
}

// ParseJSON decodes draws from a JSON array of
// {draw_date, main, bonus} or {draw_date, numbers: {main, bonus}} objects,
// or an object with a "draws" array of the same.
func ParseJSON(r io.Reader, rules game.Rules) (Parsed, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Parsed{}, err
	}
	var items []jsonDraw
	if err := json.Unmarshal(body, &items); err != nil {
		var wrapped struct {
			Draws []jsonDraw `json:"draws"`
		}
		if err2 := json.Unmarshal(body, &wrapped); err2 != nil {
			return Parsed{}, apperrors.Validation("malformed json feed: %v", errors.Join(err, err2))
		}
		items = wrapped.Draws
	}
	var out Parsed
	for _, it := range items {
		main, bonus := it.Main, it.Bonus
		if it.Numbers != nil {
			main, bonus = it.Numbers.Main, it.Numbers.Bonus
		}
		out.add(rules, it.DrawDate, main, bonus)
	}
	return out, nil
}

func (p *Parsed) add(rules game.Rules, rawDate string, main, bonus []int) {
	date, err := parseDate(rawDate)
	if err != nil {
		p.Skipped++
		return
	}
	d := game.Draw{DrawDate: date, Main: main, Bonus: bonus}
	if err := d.Validate(rules); err != nil {
		p.Skipped++
		return
	}
	p.Draws = append(p.Draws, d)
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func normalizeHeader(rec []string) map[string]int {
	out := make(map[string]int, len(rec))
	for i, h := range rec {
		out[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return out
}

// splitNumbers reads every integer in a space- or comma-separated field,
// ignoring tokens that are not numbers.
func splitNumbers(s string) []int {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	var out []int
	for _, f := range fields {
		if n, err := strconv.Atoi(f); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func atoiAll(fields []string) ([]int, bool) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
