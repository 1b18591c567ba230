package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

type AwardStatus string

const (
	AwardNominated AwardStatus = "nominated"
	AwardWon       AwardStatus = "won"
)

// Award is a festival nomination or win embedded in a project.
type Award struct {
	Name   string      `json:"name"`
	Source string      `json:"source"`
	Status AwardStatus `json:"status"`
}

// Credit is one line of a project's credits list.
type Credit struct {
	Role string `json:"role"`
	Name string `json:"name"`
}

// AwardList is the awards column. It reads the structured array form and the
// legacy free-text form ("Name - Source" per line) and always writes the
// structured form.
type AwardList []Award

func (l *AwardList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	if data[0] == '"' {
		var legacy string
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}
		*l = ParseLegacyNominations(legacy)
		return nil
	}

	var awards []Award
	if err := json.Unmarshal(data, &awards); err != nil {
		return err
	}
	*l = normalizeAwards(awards)
	return nil
}

// Scan implements sql.Scanner for json/jsonb and text columns.
func (l *AwardList) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return l.scanText(v)
	case string:
		return l.scanText([]byte(v))
	default:
		return fmt.Errorf("awards: unsupported column type %T", value)
	}
}

func (l *AwardList) scanText(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && (b[0] == '[' || b[0] == '"' || bytes.Equal(b, []byte("null"))) {
		return l.UnmarshalJSON(b)
	}
	*l = ParseLegacyNominations(string(b))
	return nil
}

// Value implements driver.Valuer.
func (l AwardList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Award(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDataType keeps gorm from treating the slice as an association.
func (AwardList) GormDataType() string {
	return "json"
}

// ParseLegacyNominations converts the old newline separated nominations text
// into awards. Every legacy entry is a nomination.
func ParseLegacyNominations(text string) AwardList {
	var awards AwardList
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Only the first two " - " separated parts are kept.
		parts := strings.Split(line, " - ")
		name, source := parts[0], ""
		if len(parts) > 1 {
			source = parts[1]
		}
		if name == "" {
			name = line
		}
		awards = append(awards, Award{
			Name:   strings.TrimSpace(name),
			Source: strings.TrimSpace(source),
			Status: AwardNominated,
		})
	}
	return awards
}

// normalizeAwards drops nameless entries and defaults unknown statuses.
func normalizeAwards(in []Award) AwardList {
	out := make(AwardList, 0, len(in))
	for _, a := range in {
		a.Name = strings.TrimSpace(a.Name)
		a.Source = strings.TrimSpace(a.Source)
		if a.Name == "" {
			continue
		}
		if a.Status != AwardWon {
			a.Status = AwardNominated
		}
		out = append(out, a)
	}
	return out
}
