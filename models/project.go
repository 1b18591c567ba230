package models

import (
	"time"

	"gorm.io/datatypes"
)

const DefaultProjectType = "Documentary"

// Project is one portfolio entry. ID is a URL-safe slug and never changes
// once the row exists.
type Project struct {
	ID             string                      `json:"id" gorm:"column:id;primaryKey"`
	Title          string                      `json:"title" gorm:"column:title;not null"`
	Subtitle       string                      `json:"subtitle" gorm:"column:subtitle"`
	Type           string                      `json:"type" gorm:"column:type"`
	Year           int                         `json:"year" gorm:"column:year"`
	Role           string                      `json:"role" gorm:"column:role"`
	Status         *string                     `json:"status" gorm:"column:status"`
	ThumbnailURL   string                      `json:"thumbnail_url" gorm:"column:thumbnail_url"`
	VideoType      string                      `json:"video_type" gorm:"column:video_type"`
	VideoID        string                      `json:"video_id" gorm:"column:video_id"`
	ExternalURL    string                      `json:"external_url" gorm:"column:external_url"`
	Description    string                      `json:"description" gorm:"column:description"`
	Awards         AwardList                   `json:"awards" gorm:"column:awards"`
	Credits        datatypes.JSONSlice[Credit] `json:"credits" gorm:"column:credits"`
	Featured       bool                        `json:"featured" gorm:"column:featured"`
	ShowHomeBorder bool                        `json:"show_home_border" gorm:"column:show_home_border"`
	DisplayOrder   int                         `json:"display_order" gorm:"column:display_order"`
	CreatedAt      *time.Time                  `json:"created_at,omitempty" gorm:"column:created_at"`
	UpdatedAt      *time.Time                  `json:"updated_at,omitempty" gorm:"column:updated_at"`

	// Nominations is the pre-awards free-text column. It is read for old
	// rows and never written.
	Nominations string `json:"nominations,omitempty" gorm:"column:nominations;->"`
}

func (Project) TableName() string {
	return "projects"
}

// NewProject returns a project with the admin form defaults applied.
func NewProject(title string) Project {
	return Project{
		Title:     title,
		Type:      DefaultProjectType,
		Year:      time.Now().Year(),
		VideoType: VideoYouTube,
		Awards:    AwardList{},
		Credits:   datatypes.JSONSlice[Credit]{},
	}
}

// Normalize folds the legacy nominations text into Awards and replaces nil
// lists with empty ones.
func (p Project) Normalize() Project {
	out := p.Clone()
	if len(out.Awards) == 0 && out.Nominations != "" {
		out.Awards = ParseLegacyNominations(out.Nominations)
	}
	out.Nominations = ""
	if out.Awards == nil {
		out.Awards = AwardList{}
	}
	if out.Credits == nil {
		out.Credits = datatypes.JSONSlice[Credit]{}
	}
	return out
}

// Clone returns a deep copy of p.
func (p Project) Clone() Project {
	out := p
	if p.Status != nil {
		s := *p.Status
		out.Status = &s
	}
	if p.Awards != nil {
		out.Awards = append(AwardList{}, p.Awards...)
	}
	if p.Credits != nil {
		out.Credits = append(datatypes.JSONSlice[Credit]{}, p.Credits...)
	}
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		out.CreatedAt = &t
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ProjectPatch is a partial project update. An empty Status clears it.
type ProjectPatch struct {
	Title          *string    `json:"title,omitempty"`
	Subtitle       *string    `json:"subtitle,omitempty"`
	Type           *string    `json:"type,omitempty"`
	Year           *int       `json:"year,omitempty"`
	Role           *string    `json:"role,omitempty"`
	Status         *string    `json:"status,omitempty"`
	ThumbnailURL   *string    `json:"thumbnail_url,omitempty"`
	VideoType      *string    `json:"video_type,omitempty"`
	VideoID        *string    `json:"video_id,omitempty"`
	ExternalURL    *string    `json:"external_url,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Awards         *AwardList `json:"awards,omitempty"`
	Credits        *[]Credit  `json:"credits,omitempty"`
	Featured       *bool      `json:"featured,omitempty"`
	ShowHomeBorder *bool      `json:"show_home_border,omitempty"`
	DisplayOrder   *int       `json:"display_order,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func (p ProjectPatch) stringFields(pr *Project) []stringField {
	return []stringField{
		{"title", p.Title, &pr.Title},
		{"subtitle", p.Subtitle, &pr.Subtitle},
		{"type", p.Type, &pr.Type},
		{"role", p.Role, &pr.Role},
		{"thumbnail_url", p.ThumbnailURL, &pr.ThumbnailURL},
		{"video_type", p.VideoType, &pr.VideoType},
		{"video_id", p.VideoID, &pr.VideoID},
		{"external_url", p.ExternalURL, &pr.ExternalURL},
		{"description", p.Description, &pr.Description},
	}
}

// ApplyTo merges the patch into a copy of pr. The id is never touched.
func (p ProjectPatch) ApplyTo(pr Project) Project {
	out := pr.Clone()
	for _, f := range p.stringFields(&out) {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	if p.Year != nil {
		out.Year = *p.Year
	}
	if p.Status != nil {
		if *p.Status == "" {
			out.Status = nil
		} else {
			s := *p.Status
			out.Status = &s
		}
	}
	if p.Awards != nil {
		out.Awards = normalizeAwards(*p.Awards)
	}
	if p.Credits != nil {
		out.Credits = append(datatypes.JSONSlice[Credit]{}, (*p.Credits)...)
	}
	if p.Featured != nil {
		out.Featured = *p.Featured
	}
	if p.ShowHomeBorder != nil {
		out.ShowHomeBorder = *p.ShowHomeBorder
	}
	if p.DisplayOrder != nil {
		out.DisplayOrder = *p.DisplayOrder
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// Columns returns the changed columns keyed by column name. Values are ready
// for both a JSON body and a SQL update.
func (p ProjectPatch) Columns() map[string]any {
	var scratch Project
	cols := make(map[string]any)
	for _, f := range p.stringFields(&scratch) {
		if f.src != nil {
			cols[f.column] = *f.src
		}
	}
	if p.Year != nil {
		cols["year"] = *p.Year
	}
	if p.Status != nil {
		if *p.Status == "" {
			cols["status"] = nil
		} else {
			cols["status"] = *p.Status
		}
	}
	if p.Awards != nil {
		cols["awards"] = normalizeAwards(*p.Awards)
	}
	if p.Credits != nil {
		cols["credits"] = datatypes.JSONSlice[Credit](*p.Credits)
	}
	if p.Featured != nil {
		cols["featured"] = *p.Featured
	}
	if p.ShowHomeBorder != nil {
		cols["show_home_border"] = *p.ShowHomeBorder
	}
	if p.DisplayOrder != nil {
		cols["display_order"] = *p.DisplayOrder
	}
	if p.UpdatedAt != nil {
		cols["updated_at"] = *p.UpdatedAt
	}
	return cols
}
